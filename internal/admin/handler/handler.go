// Package handler exposes administrator management over HTTP. Every route is
// gated on an admin token; the service enforces the top-authority rules.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medicineweb/internal/admin/service"
	"medicineweb/internal/directory/models"
	"medicineweb/internal/platform/middleware"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/httputil"
)

// Service defines the authority operations the handler needs.
type Service interface {
	CreateAuthority(ctx context.Context, actorAccountID uuid.UUID, req service.CreateAuthorityRequest) (*models.Authority, error)
	DeactivateAuthority(ctx context.Context, actorAccountID, authorityID uuid.UUID) (*models.Authority, error)
	ReactivateAuthority(ctx context.Context, actorAccountID, authorityID uuid.UUID) (*models.Authority, error)
	ListAuthorities(ctx context.Context, actorAccountID uuid.UUID) ([]*models.Authority, error)
	GetMe(ctx context.Context, accountID uuid.UUID) (*service.Me, error)
	GetStats(ctx context.Context, actorAccountID uuid.UUID) (*service.Stats, error)
}

// Handler handles administrator management endpoints.
type Handler struct {
	logger       *slog.Logger
	guard        Service
	jwtValidator middleware.JWTValidator
}

// New creates a new admin Handler.
func New(guard Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		guard:        guard,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the routes on the given router.
func (h *Handler) Register(r chi.Router) {
	auth := middleware.RequireAuth(h.jwtValidator, h.logger)
	role := middleware.RequireRole(string(models.RoleAdmin), h.logger)

	r.Route("/admin/authorities", func(ar chi.Router) {
		ar.Use(auth, role)
		ar.Get("/", h.handleList)
		ar.Post("/", h.handleCreate)
		ar.Post("/{id}/deactivate", h.handleDeactivate)
		ar.Post("/{id}/reactivate", h.handleReactivate)
	})
	r.With(auth, role).Get("/admin/me", h.handleMe)
	r.With(auth, role).Get("/admin/stats", h.handleStats)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.guard.ListAuthorities(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err, "failed to list authorities")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req CreateAuthorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.guard.CreateAuthority(r.Context(), actor, service.CreateAuthorityRequest{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Department: req.Department,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to create authority")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.guard.DeactivateAuthority, "failed to deactivate authority")
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.guard.ReactivateAuthority, "failed to reactivate authority")
}

func (h *Handler) handleToggle(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actorAccountID, authorityID uuid.UUID) (*models.Authority, error),
	msg string,
) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.NewField(dErrors.CodeValidation, "id", "id must be a UUID"))
		return
	}

	authority, err := op(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authority)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	me, err := h.guard.GetMe(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err, "failed to load administrator")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, me)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.guard.GetStats(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err, "failed to gather stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid authentication context")
	}
	return id, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), msg,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
