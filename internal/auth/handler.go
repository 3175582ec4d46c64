package auth

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"medicineweb/internal/platform/middleware"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/httputil"
)

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.NewField(dErrors.CodeValidation, "email", "email is not valid")
	}
	if r.Password == "" {
		return dErrors.NewField(dErrors.CodeValidation, "password", "password is required")
	}
	return nil
}

// Handler exposes the login endpoint.
type Handler struct {
	service *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.service.logger.ErrorContext(r.Context(), "login failed",
				"request_id", middleware.GetRequestID(r.Context()),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
