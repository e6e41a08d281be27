package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/accounts"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// UserHandler exposes user management to administrators.
type UserHandler struct {
	accounts *accounts.Service
	log      logrus.FieldLogger
}

func NewUserHandler(accounts *accounts.Service, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{accounts: accounts, log: log}
}

func (h *UserHandler) Register(r chi.Router, g Guards) {
	r.With(g.authed(models.PermUserView)...).Get("/users", h.handleList)
	r.With(g.authed(models.PermUserEdit)...).Post("/users/edit", h.handleEdit)
	r.With(g.authed(models.PermUserDelete)...).Post("/users/delete", h.handleDelete)
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list users failed")
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, "OK", users)
}

func (h *UserHandler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req dto.EditUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	updated, err := h.accounts.Edit(r.Context(), accounts.EditInput{
		Username:    req.Username,
		NewUsername: req.NewUsername,
		Password:    req.Password,
		Role:        req.Role,
	})
	if err != nil {
		h.writeError(w, err, "edit user failed")
		return
	}
	respond.JSON(w, http.StatusOK, "User updated successfully", updated)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.accounts.Delete(r.Context(), req.Username); err != nil {
		h.writeError(w, err, "delete user failed")
		return
	}
	respond.JSON(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *UserHandler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, accounts.ErrValidation):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "Username already taken")
	default:
		h.log.WithError(err).Error(msg)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
