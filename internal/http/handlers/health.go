package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	db        Pinger
}

// NewHealthHandler creates a health endpoint handler. db may be nil.
func NewHealthHandler(startedAt time.Time, db Pinger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, db: db}
}

// Register wires the handler into the router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			respond.JSON(w, http.StatusServiceUnavailable, "database unreachable", status)
			return
		}
		status["database"] = "ok"
	}
	respond.JSON(w, http.StatusOK, "OK", status)
}
