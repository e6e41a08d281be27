package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// ProfileHandler serves the public profile cards and their admin edits.
type ProfileHandler struct {
	store storage.ProfileStore
	log   logrus.FieldLogger
}

func NewProfileHandler(store storage.ProfileStore, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{store: store, log: log}
}

func (h *ProfileHandler) Register(r chi.Router, g Guards) {
	r.Get("/profiles", h.handleList)
	r.With(g.authed(models.PermProfileEdit)...).Post("/profiles/create", h.handleCreate)
	r.With(g.authed(models.PermProfileEdit)...).Post("/profiles/update", h.handleUpdate)
	r.With(g.authed(models.PermProfileEdit)...).Post("/profiles/delete", h.handleDelete)
}

func (h *ProfileHandler) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list profiles failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch profiles")
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	respond.JSON(w, http.StatusOK, "OK", profiles)
}

func (h *ProfileHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	p := profileFrom(req)
	if p.ID == "" || p.Title == "" || p.URL == "" || p.Image == "" {
		respond.Error(w, http.StatusBadRequest, "id, title, url and image are required")
		return
	}
	if p.Color == "" {
		p.Color = models.DefaultProfileColor
	}

	created, err := h.store.CreateProfile(r.Context(), p)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "Profile with this ID already exists")
			return
		}
		h.log.WithError(err).Error("create profile failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}
	respond.JSON(w, http.StatusCreated, "Profile created successfully", created)
}

// handleUpdate changes only the fields present in the request.
func (h *ProfileHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	patch := profileFrom(req)
	if patch.ID == "" {
		respond.Error(w, http.StatusBadRequest, "Profile ID is required")
		return
	}

	current, err := h.store.FindProfile(r.Context(), patch.ID)
	if err != nil {
		h.writeLookupError(w, err, "find profile failed")
		return
	}
	if patch.Title != "" {
		current.Title = patch.Title
	}
	if patch.URL != "" {
		current.URL = patch.URL
	}
	if patch.Image != "" {
		current.Image = patch.Image
	}
	if patch.Color != "" {
		current.Color = patch.Color
	}

	updated, err := h.store.UpdateProfile(r.Context(), current)
	if err != nil {
		h.writeLookupError(w, err, "update profile failed")
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated successfully", updated)
}

func (h *ProfileHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteProfileRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "Profile ID is required")
		return
	}
	if err := h.store.DeleteProfile(r.Context(), id); err != nil {
		h.writeLookupError(w, err, "delete profile failed")
		return
	}
	respond.JSON(w, http.StatusOK, "Profile deleted successfully", nil)
}

func (h *ProfileHandler) writeLookupError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Profile not found")
		return
	}
	h.log.WithError(err).Error(msg)
	respond.Error(w, http.StatusInternalServerError, "Internal server error")
}

func profileFrom(req dto.ProfileRequest) models.Profile {
	return models.Profile{
		ID:    strings.TrimSpace(req.ID),
		Title: strings.TrimSpace(req.Title),
		URL:   strings.TrimSpace(req.URL),
		Image: strings.TrimSpace(req.Image),
		Color: strings.TrimSpace(req.Color),
	}
}
