package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/analytics"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
)

// AnalyticsHandler records public visits and reports them to administrators.
type AnalyticsHandler struct {
	service *analytics.Service
	log     logrus.FieldLogger
}

func NewAnalyticsHandler(service *analytics.Service, log logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, log: log}
}

func (h *AnalyticsHandler) Register(r chi.Router, g Guards) {
	r.Post("/analytics/record-visit", h.handleRecordVisit)
	r.With(g.authed(models.PermAnalyticsView)...).Get("/analytics/data", h.handleData)
}

func (h *AnalyticsHandler) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordVisitRequest
	if err := respond.Decode(w, r, &req); err != nil && !errors.Is(err, respond.ErrEmptyBody) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}

	visitorID, err := h.service.RecordVisit(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("record visit failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to record visit")
		return
	}
	respond.JSON(w, http.StatusOK, "Visit recorded", dto.RecordVisitResponse{VisitorID: visitorID})
}

func (h *AnalyticsHandler) handleData(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.log.WithError(err).Error("analytics report failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch analytics data")
		return
	}
	respond.JSON(w, http.StatusOK, "OK", report)
}
