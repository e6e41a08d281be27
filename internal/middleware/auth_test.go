package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/sessions"
)

type countingVerifier struct {
	inner *auth.TokenManager
	calls int
}

func (v *countingVerifier) Verify(token string) (*auth.Claims, error) {
	v.calls++
	return v.inner.Verify(token)
}

type stubSource struct {
	perms []models.Permission
	err   error
}

func (s stubSource) Permissions(context.Context, string) ([]models.Permission, error) {
	return s.perms, s.err
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantUser, id.Username)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	tokens := auth.NewTokenManager("secret", "portfolio")
	valid, err := tokens.Sign(models.User{Username: "alice", Role: models.RoleUser}, now, now.Add(time.Hour))
	require.NoError(t, err)
	other := auth.NewTokenManager("other-secret", "portfolio")
	forged, err := other.Sign(models.User{Username: "alice", Role: models.RoleAdmin}, now, now.Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		status     int
		wantVerify bool
	}{
		{name: "no header", header: "", status: http.StatusUnauthorized},
		{name: "blank bearer", header: "Bearer   ", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic YWxpY2U6cHc=", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusForbidden, wantVerify: true},
		{name: "wrong signature", header: "Bearer " + forged, status: http.StatusForbidden, wantVerify: true},
		{name: "valid", header: "Bearer " + valid, status: http.StatusNoContent, wantVerify: true},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusNoContent, wantVerify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &countingVerifier{inner: tokens}
			h := Authenticate(v, nil)(okHandler(t, "alice"))

			r := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantVerify, v.calls > 0)
		})
	}
}

func TestRequirePermissions(t *testing.T) {
	logger, hook := test.NewNullLogger()

	tests := []struct {
		name     string
		source   stubSource
		required []models.Permission
		status   int
	}{
		{
			name:     "all present",
			source:   stubSource{perms: models.PermissionsFor(models.RoleUser)},
			required: []models.Permission{models.PermAnalyticsView, models.PermUserView},
			status:   http.StatusNoContent,
		},
		{
			name:     "one missing",
			source:   stubSource{perms: models.PermissionsFor(models.RoleUser)},
			required: []models.Permission{models.PermAnalyticsView, models.PermUserDelete},
			status:   http.StatusForbidden,
		},
		{
			name:     "nothing required",
			source:   stubSource{perms: nil},
			required: nil,
			status:   http.StatusNoContent,
		},
		{
			name:     "session gone",
			source:   stubSource{err: sessions.ErrTokenNotFound},
			required: []models.Permission{models.PermUserView},
			status:   http.StatusForbidden,
		},
		{
			name:     "session expired",
			source:   stubSource{err: sessions.ErrTokenExpired},
			required: []models.Permission{models.PermUserView},
			status:   http.StatusForbidden,
		},
		{
			name:     "storage failure",
			source:   stubSource{err: errors.New("connection refused")},
			required: []models.Permission{models.PermUserView},
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequirePermissions(tt.source, logger, nil, tt.required...)(okHandler(t, "alice"))
			r := httptest.NewRequest(http.MethodGet, "/analytics/data", nil)
			r = r.WithContext(WithIdentity(r.Context(), Identity{Username: "alice", Token: "tok"}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRequirePermissionsWithoutIdentity(t *testing.T) {
	h := RequirePermissions(stubSource{}, logrus.New(), nil, models.PermUserView)(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
