package csrf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard() *Guard {
	return NewGuard(NewMemoryStore(100, time.Hour), "session-secret", time.Hour)
}

func issue(t *testing.T, g *Guard, cookies ...*http.Cookie) (string, []*http.Cookie) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/csrf-token", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	token, err := g.Issue(rec, r)
	require.NoError(t, err)
	return token, rec.Result().Cookies()
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func guarded(g *Guard) http.Handler {
	return g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestIssueSetsCookies(t *testing.T) {
	g := newTestGuard()
	token, cookies := issue(t, g)

	assert.Len(t, token, 64)
	sid := cookieNamed(cookies, SessionCookie)
	require.NotNil(t, sid)
	assert.True(t, sid.HttpOnly)
	xsrf := cookieNamed(cookies, TokenCookie)
	require.NotNil(t, xsrf)
	assert.False(t, xsrf.HttpOnly)
	assert.Equal(t, token, xsrf.Value)
}

func TestIssueReusesTokenWithinSession(t *testing.T) {
	g := newTestGuard()
	first, cookies := issue(t, g)
	second, again := issue(t, g, cookieNamed(cookies, SessionCookie))

	assert.Equal(t, first, second)
	assert.Nil(t, cookieNamed(again, SessionCookie))
}

func TestMiddleware(t *testing.T) {
	g := newTestGuard()
	token, cookies := issue(t, g)
	sid := cookieNamed(cookies, SessionCookie)
	h := guarded(g)

	tests := []struct {
		name   string
		build  func() *http.Request
		status int
	}{
		{
			name: "safe method passes",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/users", nil)
			},
			status: http.StatusNoContent,
		},
		{
			name: "header token",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.AddCookie(sid)
				r.Header.Set(HeaderName, token)
				return r
			},
			status: http.StatusNoContent,
		},
		{
			name: "form field",
			build: func() *http.Request {
				form := url.Values{FieldName: {token}}
				r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				r.AddCookie(sid)
				return r
			},
			status: http.StatusNoContent,
		},
		{
			name: "json field",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"_csrf":"`+token+`"}`))
				r.Header.Set("Content-Type", "application/json; charset=utf-8")
				r.AddCookie(sid)
				return r
			},
			status: http.StatusNoContent,
		},
		{
			name: "missing token",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.AddCookie(sid)
				return r
			},
			status: http.StatusForbidden,
		},
		{
			name: "wrong token",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.AddCookie(sid)
				r.Header.Set(HeaderName, strings.Repeat("0", 64))
				return r
			},
			status: http.StatusForbidden,
		},
		{
			name: "no session cookie",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.Header.Set(HeaderName, token)
				return r
			},
			status: http.StatusForbidden,
		},
		{
			name: "tampered session cookie",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged.deadbeef"})
				r.Header.Set(HeaderName, token)
				return r
			},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.build())
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestJSONBodyIsRestored(t *testing.T) {
	g := newTestGuard()
	token, cookies := issue(t, g)

	body := `{"_csrf":"` + token + `","username":"alice"}`
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(cookieNamed(cookies, SessionCookie))

	var seen string
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = buf.ReadFrom(r.Body)
		seen = buf.String()
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, body, seen)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "sid-1", "token"))
	token, found, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "token", token)

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGuardWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	g := NewGuard(NewRedisStore(client, time.Hour), "secret", time.Hour)
	token, cookies := issue(t, g)

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(cookieNamed(cookies, SessionCookie))
	r.Header.Set(HeaderName, token)
	ok, err := g.Validate(r)
	require.NoError(t, err)
	assert.True(t, ok)
}
