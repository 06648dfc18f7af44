// Package http provides the HTTP handlers and router of the Realtivo API.
package http

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/middleware"
	"github.com/atinyakov/realtivo/internal/models"
	"github.com/atinyakov/realtivo/internal/service"
)

// AuthService defines the authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Signup registers a new user and returns it without credentials.
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
	// Login checks credentials and returns a signed access token.
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

// AuthHandler handles HTTP requests for signup and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// SignupRequest represents the JSON payload for user registration.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token under both names clients look for.
type LoginResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// Signup handles POST /auth/signup. It responds 201 with the created user,
// 400 on validation errors and 409 when the email is taken.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.AuthService.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.Log.Info("user signed up", zap.String("user", user.ID), zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusCreated, map[string]*models.User{"user": user})
}

// Login handles POST /auth/login and responds with a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	token, user, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RecordLogin("failure")
	case err != nil:
		middleware.RecordLogin("error")
	default:
		middleware.RecordLogin("success")
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, AccessToken: token, User: user})
}
