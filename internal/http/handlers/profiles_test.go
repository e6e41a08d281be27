package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/portfolio-be/internal/analytics"
	"github.com/hongminglow/portfolio-be/internal/storage/memory"
)

func newContentRouter() chi.Router {
	logger, _ := test.NewNullLogger()
	store := memory.New()
	r := chi.NewRouter()
	NewProfileHandler(store, logger).Register(r, Guards{})
	NewAnalyticsHandler(analytics.NewService(store, nil), logger).Register(r, Guards{})
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProfileValidation(t *testing.T) {
	r := newContentRouter()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "bad json", path: "/profiles/create", body: "{", status: http.StatusBadRequest},
		{name: "missing image", path: "/profiles/create", body: `{"id":"x","title":"X","url":"https://x"}`, status: http.StatusBadRequest},
		{name: "update without id", path: "/profiles/update", body: `{"title":"X"}`, status: http.StatusBadRequest},
		{name: "update unknown", path: "/profiles/update", body: `{"id":"nope","title":"X"}`, status: http.StatusNotFound},
		{name: "delete without id", path: "/profiles/delete", body: `{"id":"  "}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestProfileListIsNeverNull(t *testing.T) {
	rec := serve(newContentRouter(), http.MethodGet, "/profiles", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestRecordVisitAcceptsEmptyBody(t *testing.T) {
	rec := serve(newContentRouter(), http.MethodPost, "/analytics/record-visit", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "visitorId")
}
