// Package csrf binds an anti-forgery token to a signed browser session cookie
// and rejects state-changing requests that do not echo it back.
package csrf

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
)

const (
	// SessionCookie carries the signed browser session id.
	SessionCookie = "sid"
	// TokenCookie exposes the token to browser scripts.
	TokenCookie = "XSRF-TOKEN"
	// HeaderName is the request header checked for the token.
	HeaderName = "X-XSRF-TOKEN"
	// FieldName is the form or JSON body field checked for the token.
	FieldName = "_csrf"

	tokenBytes = 32
)

// Guard issues and validates anti-forgery tokens.
type Guard struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
	log    logrus.FieldLogger
}

// Option customizes a Guard.
type Option func(*Guard)

// WithSecureCookies marks issued cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(g *Guard) { g.secure = secure }
}

// WithLogger sets the logger used for store failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Guard) { g.log = log }
}

// NewGuard returns a Guard signing session cookies with secret. Cookies live for ttl.
func NewGuard(store Store, secret string, ttl time.Duration, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue returns the token bound to the caller's browser session, creating the
// session and the token when needed, and sets both cookies.
func (g *Guard) Issue(w http.ResponseWriter, r *http.Request) (string, error) {
	sid, ok := g.sessionID(r)
	if !ok {
		sid = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    g.sign(sid),
			Path:     "/",
			MaxAge:   int(g.ttl.Seconds()),
			HttpOnly: true,
			Secure:   g.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	token, found, err := g.store.Get(r.Context(), sid)
	if err != nil {
		return "", err
	}
	if !found {
		if token, err = newToken(); err != nil {
			return "", err
		}
		if err := g.store.Set(r.Context(), sid, token); err != nil {
			return "", err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Middleware rejects unsafe requests without a valid token with 403.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		ok, err := g.Validate(r)
		if err != nil {
			g.log.WithError(err).Error("csrf validation failed")
			respond.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !ok {
			respond.Error(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Validate reports whether r presents the token stored for its browser session.
func (g *Guard) Validate(r *http.Request) (bool, error) {
	sid, ok := g.sessionID(r)
	if !ok {
		return false, nil
	}
	presented := presentedToken(r)
	if presented == "" {
		return false, nil
	}
	expected, found, err := g.store.Get(r.Context(), sid)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1, nil
}

func (g *Guard) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	sid, mac, found := strings.Cut(c.Value, ".")
	if !found || sid == "" {
		return "", false
	}
	expected := g.mac(sid)
	if !hmac.Equal([]byte(mac), []byte(expected)) {
		return "", false
	}
	return sid, true
}

func (g *Guard) sign(sid string) string {
	return sid + "." + g.mac(sid)
}

func (g *Guard) mac(sid string) string {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(sid))
	return hex.EncodeToString(h.Sum(nil))
}

func presentedToken(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue(FieldName)
	case "application/json":
		return jsonField(r)
	}
	return ""
}

// jsonField reads the token out of a JSON body and restores the body for the
// next handler.
func jsonField(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, respond.MaxBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var payload struct {
		CSRF string `json:"_csrf"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.CSRF
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
