// Package sessions issues, looks up, and invalidates login sessions.
//
// Every issued token has exactly one server-side record. A record leaves the
// store when it is killed, superseded by a newer login for the same username,
// or read after its expiry. There is no background sweeper.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/observability"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// Hasher verifies passwords against stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Signer mints bearer tokens.
type Signer interface {
	Sign(user models.User, issuedAt, expiresAt time.Time) (string, error)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Manager implements login and the session lifecycle.
type Manager struct {
	users    storage.UserStore
	sessions storage.SessionStore
	hasher   Hasher
	signer   Signer
	ttl      time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
	metrics  *observability.Metrics
	tracer   trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics records login and session events.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager builds a Manager issuing sessions that live for ttl.
func NewManager(users storage.UserStore, sessions storage.SessionStore, hasher Hasher, signer Signer, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		signer:   signer,
		ttl:      ttl,
		now:      time.Now,
		log:      logrus.StandardLogger(),
		tracer:   otel.Tracer("github.com/hongminglow/portfolio-be/internal/sessions"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login verifies credentials and issues a token backed by a fresh session.
// Any earlier session of the same user is replaced.
func (m *Manager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	ctx, span := m.tracer.Start(ctx, "sessions.Login")
	defer span.End()

	username = models.SanitizeUsername(username)
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return LoginResult{}, fmt.Errorf("find user: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		m.hasher.Verify(password, m.fakeHash())
		m.metrics.LoginAttempt("invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !m.hasher.Verify(password, user.PasswordHash) {
		m.metrics.LoginAttempt("invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	token, err := m.signer.Sign(user, issuedAt, expiresAt)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}

	err = m.StoreToken(ctx, models.Session{
		Username:    user.Username,
		Token:       token,
		Permissions: models.PermissionsFor(user.Role),
		Role:        user.Role,
		CreatedAt:   issuedAt,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return LoginResult{}, err
	}

	span.SetAttributes(attribute.String("user.role", string(user.Role)))
	m.metrics.LoginAttempt("success")
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// StoreToken persists session as the single active session of its username.
// Permissions outside the catalog are rejected before anything is written.
func (m *Manager) StoreToken(ctx context.Context, session models.Session) error {
	for _, p := range session.Permissions {
		if _, ok := models.ParsePermission(string(p)); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPermission, p)
		}
	}
	if err := m.sessions.UpsertSession(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Session returns the live session holding token. An expired session is
// deleted and reported as ErrTokenExpired.
func (m *Manager) Session(ctx context.Context, token string) (models.Session, error) {
	session, err := m.sessions.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, ErrTokenNotFound
		}
		return models.Session{}, fmt.Errorf("find session: %w", err)
	}
	if session.Expired(m.now()) {
		if err := m.sessions.DeleteSessionByToken(ctx, token); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, fmt.Errorf("delete expired session: %w", err)
		}
		m.metrics.SessionExpired()
		return models.Session{}, ErrTokenExpired
	}
	return session, nil
}

// Permissions returns the permission snapshot of the session holding token.
func (m *Manager) Permissions(ctx context.Context, token string) ([]models.Permission, error) {
	ctx, span := m.tracer.Start(ctx, "sessions.Permissions")
	defer span.End()

	session, err := m.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	perms := make([]models.Permission, 0, len(session.Permissions))
	for _, raw := range session.Permissions {
		p, ok := models.ParsePermission(string(raw))
		if !ok {
			m.log.WithFields(logrus.Fields{
				"username":   session.Username,
				"permission": string(raw),
			}).Warn("dropping unknown permission from session")
			continue
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// HasPermissions reports whether the session holding token carries every
// permission in required.
func (m *Manager) HasPermissions(ctx context.Context, token string, required ...models.Permission) (bool, error) {
	perms, err := m.Permissions(ctx, token)
	if err != nil {
		return false, err
	}
	return models.HasAll(perms, required...), nil
}

// KillByUsername deletes the session owned by username.
func (m *Manager) KillByUsername(ctx context.Context, username string) error {
	err := m.sessions.DeleteSessionByUsername(ctx, models.SanitizeUsername(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	m.metrics.SessionKilled("username")
	return nil
}

// KillByToken deletes the session holding token.
func (m *Manager) KillByToken(ctx context.Context, token string) error {
	err := m.sessions.DeleteSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	m.metrics.SessionKilled("token")
	return nil
}

func (m *Manager) fakeHash() string {
	m.dummyOnce.Do(func() {
		hash, err := m.hasher.Hash("portfolio-login-placeholder")
		if err != nil {
			m.log.WithError(err).Error("failed to prepare placeholder hash")
			return
		}
		m.dummyHash = hash
	})
	return m.dummyHash
}
