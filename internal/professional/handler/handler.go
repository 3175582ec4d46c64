// Package handler exposes the professional lifecycle over HTTP: the
// admin-gated review endpoints and the public directory read side.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
	"medicineweb/internal/platform/middleware"
	"medicineweb/internal/professional/service"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/httputil"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	ListPending(ctx context.Context) ([]*models.Professional, error)
	ListAll(ctx context.Context, filter models.StatusFilter) ([]*models.Professional, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Professional, error)
	ListPublic(ctx context.Context, specialty string) ([]*models.Professional, error)
	GetPublicProfile(ctx context.Context, id uuid.UUID) (*models.Professional, error)
	Approve(ctx context.Context, actorAccountID, professionalID uuid.UUID) (*models.Professional, error)
	Reject(ctx context.Context, actorAccountID, professionalID uuid.UUID, reason string) (*models.Professional, error)
	Retire(ctx context.Context, actorAccountID, professionalID uuid.UUID, reason string) (*service.RetireResult, error)
}

// Handler handles professional lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	lifecycle    Service
	jwtValidator middleware.JWTValidator
}

// New creates a new professional Handler.
func New(lifecycle Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		lifecycle:    lifecycle,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/professionals", h.handleListPublic)
	r.Get("/professionals/{id}", h.handleGetPublic)

	r.Route("/admin/professionals", func(ar chi.Router) {
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Use(middleware.RequireRole(string(models.RoleAdmin), h.logger))
		ar.Get("/pending", h.handleListPending)
		ar.Get("/", h.handleListAll)
		ar.Get("/{id}", h.handleGet)
		ar.Post("/{id}/approve", h.handleApprove)
		ar.Post("/{id}/reject", h.handleReject)
		ar.Post("/{id}/retire", h.handleRetire)
	})
}

func (h *Handler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	list, err := h.lifecycle.ListPublic(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		h.writeError(w, r, err, "failed to list professionals")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetPublic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.lifecycle.GetPublicProfile(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to load professional")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.lifecycle.ListPending(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to list pending professionals")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.lifecycle.ListAll(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err, "failed to list professionals")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to load professional")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.lifecycle.Approve(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err, "failed to approve professional")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeReason(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.lifecycle.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeError(w, r, err, "failed to reject professional")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRetire(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeReason(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.lifecycle.Retire(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeError(w, r, err, "failed to retire professional")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"professional":       result.Professional,
		"bookings_cancelled": result.BookingsCancelled,
	})
}

func decodeReason(r *http.Request) (*ReasonRequest, error) {
	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid authentication context")
	}
	return id, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.NewField(dErrors.CodeValidation, "id", "id must be a UUID")
	}
	return id, nil
}

// writeError logs internals and hands the error body off to httputil. Coded
// domain errors pass through with their own status.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), msg,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
