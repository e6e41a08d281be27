package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/observability"
	"github.com/hongminglow/portfolio-be/internal/sessions"
)

// Identity is the verified caller attached to the request context.
type Identity struct {
	Username  string
	Role      models.Role
	Token     string
	ExpiresAt time.Time
}

type identityKey struct{}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Verifier checks a bearer token's signature and lifetime.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// PermissionSource resolves the permission snapshot behind a token.
type PermissionSource interface {
	Permissions(ctx context.Context, token string) ([]models.Permission, error)
}

// Authenticate requires a valid bearer token. A missing or malformed
// Authorization header is answered with 401 and a rejected token with 403.
func Authenticate(verifier Verifier, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				metrics.AuthRejected("missing_token")
				respond.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				metrics.AuthRejected(verifyReason(err))
				respond.Error(w, http.StatusForbidden, "Forbidden")
				return
			}

			id := Identity{Username: claims.Username, Role: claims.Role, Token: token}
			if claims.ExpiresAt != nil {
				id.ExpiresAt = claims.ExpiresAt.Time
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequirePermissions allows the request only when the caller's session holds
// every permission in required. It must run after Authenticate.
func RequirePermissions(source PermissionSource, log logrus.FieldLogger, metrics *observability.Metrics, required ...models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				metrics.AuthRejected("missing_identity")
				respond.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			granted, err := source.Permissions(r.Context(), id.Token)
			switch {
			case errors.Is(err, sessions.ErrTokenNotFound):
				metrics.AuthRejected("session_not_found")
				respond.Error(w, http.StatusForbidden, "Forbidden")
				return
			case errors.Is(err, sessions.ErrTokenExpired):
				metrics.AuthRejected("session_expired")
				respond.Error(w, http.StatusForbidden, "Forbidden")
				return
			case err != nil:
				log.WithError(err).WithField("username", id.Username).Error("permission lookup failed")
				respond.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !models.HasAll(granted, required...) {
				metrics.AuthRejected("missing_permission")
				respond.Error(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrTokenSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed_token"
	default:
		return "invalid_token"
	}
}
