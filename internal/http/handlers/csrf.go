package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/csrf"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
)

// CSRFHandler hands out anti-forgery tokens to browser clients.
type CSRFHandler struct {
	guard *csrf.Guard
	log   logrus.FieldLogger
}

func NewCSRFHandler(guard *csrf.Guard, log logrus.FieldLogger) *CSRFHandler {
	return &CSRFHandler{guard: guard, log: log}
}

func (h *CSRFHandler) Register(r chi.Router) {
	r.Get("/csrf-token", h.handle)
}

func (h *CSRFHandler) handle(w http.ResponseWriter, r *http.Request) {
	token, err := h.guard.Issue(w, r)
	if err != nil {
		h.log.WithError(err).Error("issue csrf token failed")
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respond.JSON(w, http.StatusOK, "OK", dto.CSRFTokenResponse{CSRFToken: token})
}
