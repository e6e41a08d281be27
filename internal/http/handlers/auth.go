package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/accounts"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/sessions"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// SessionService is the part of the session manager the handlers drive.
type SessionService interface {
	Login(ctx context.Context, username, password string) (sessions.LoginResult, error)
	KillByUsername(ctx context.Context, username string) error
	KillByToken(ctx context.Context, token string) error
}

// AuthHandler owns login, logout, registration and session kill endpoints.
type AuthHandler struct {
	sessions SessionService
	accounts *accounts.Service
	log      logrus.FieldLogger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions SessionService, accounts *accounts.Service, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{sessions: sessions, accounts: accounts, log: log}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router, g Guards) {
	r.With(g.login()...).Post("/login", h.handleLogin)
	r.With(g.authed()...).Post("/logout", h.handleLogout)
	r.With(g.authed(models.PermUserCreate)...).Post("/register", h.handleRegister)
	r.With(g.authed(models.PermSessionKill)...).Post("/sessions/kill", h.handleKill)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, sessions.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.WithError(err).Error("login failed")
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.log.WithField("username", result.User.Username).Info("user logged in")
	respond.JSON(w, http.StatusOK, "Login successful", dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	if err := h.sessions.KillByToken(r.Context(), id.Token); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respond.Error(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.WithError(err).Error("logout failed")
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrValidation):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "User already exists")
		default:
			h.log.WithError(err).Error("create user failed")
			respond.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleKill(w http.ResponseWriter, r *http.Request) {
	var req dto.KillSessionRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	var err error
	switch {
	case strings.TrimSpace(req.Username) != "":
		err = h.sessions.KillByUsername(r.Context(), req.Username)
	case strings.TrimSpace(req.Token) != "":
		err = h.sessions.KillByToken(r.Context(), strings.TrimSpace(req.Token))
	default:
		respond.Error(w, http.StatusBadRequest, "username or token is required")
		return
	}
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respond.Error(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.WithError(err).Error("kill session failed")
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	h.log.WithField("by", id.Username).Info("session killed")
	respond.JSON(w, http.StatusOK, "Session killed", nil)
}
