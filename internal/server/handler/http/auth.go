// Package http provides the HTTP handlers and router of the task API.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/middleware"
	"github.com/atinyakov/GophTodo/internal/models"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates an account and returns its first token.
	Register(context.Context, models.RegisterRequest) (*models.AuthResponse, error)
	// Login exchanges credentials for a token.
	Login(context.Context, models.LoginRequest) (*models.AuthResponse, error)
	// User returns the profile of an authenticated user.
	User(context.Context, string) (*models.User, error)
}

// AuthHandler handles HTTP requests for registration, login and token
// verification.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Logger      *zap.Logger
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req, false); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	resp, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req, false); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	resp, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// verifyResponse is the body of a successful POST /auth/verify.
type verifyResponse struct {
	Valid bool         `json:"valid"`
	User  *models.User `json:"user"`
}

// Verify handles POST /auth/verify. BearerAuth has already checked the
// token; this confirms the user still exists.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.AuthService.User(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: true, User: user})
}
