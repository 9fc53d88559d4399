package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/auth"
	"github.com/sakif/inkpost/internal/model"
	"github.com/sakif/inkpost/internal/service"
)

// AccountService is the slice of service.AuthService the handlers need.
// Tests substitute a fake.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, id string) (*model.PublicUser, error)
}

// AuthHandler serves registration, login and the current-user lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, answer with {user, token}
//   - HandleLogin    → verify credentials, answer with {user, token}
//   - HandleMe       → return the profile of the bearer of the token
//
// The handler only translates HTTP to service calls and back. Every rule
// (validation, uniqueness, credential checks) lives in the service.
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	User *model.PublicUser `json:"user"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "alice", "email": "alice@example.com", "password": "..."}
// RESPONSE: 201 {"user": {...}, "token": "eyJ..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "alice@example.com", "password": "..."}
// RESPONSE: 200 {"user": {...}, "token": "eyJ..."}
//
// An unknown email and a wrong password both come back as the same 401.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me
// Auth: Required (RequireAuth puts the user in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Route is missing RequireAuth.
		WriteError(w, apperror.Unauthenticated(auth.ReasonNoToken))
		return
	}

	profile, err := h.accounts.CurrentUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("HandleMe: lookup failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: profile})
}
