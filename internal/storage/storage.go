package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/portfolio-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUser replaces the record stored under username, which may rename it.
	UpdateUser(ctx context.Context, username string, user models.User) (models.User, error)
	DeleteUser(ctx context.Context, username string) error
}

// SessionStore persists issued tokens.
type SessionStore interface {
	// UpsertSession atomically replaces any session held by the same username.
	UpsertSession(ctx context.Context, session models.Session) error
	FindSessionByToken(ctx context.Context, token string) (models.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteSessionByUsername(ctx context.Context, username string) error
}

// ProfileStore persists the public profile cards.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	FindProfile(ctx context.Context, id string) (models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// VisitStore persists visitor analytics.
type VisitStore interface {
	FindVisitor(ctx context.Context, visitorID string) (models.Visitor, error)
	CreateVisitor(ctx context.Context, visitor models.Visitor) error
	UpdateVisitor(ctx context.Context, visitor models.Visitor) error
	// IncrementDaily adds to the counters of the given day, creating the row if needed.
	IncrementDaily(ctx context.Context, day time.Time, visitors, uniqueVisitors int64) error
	DailyVisitsSince(ctx context.Context, since time.Time) ([]models.DailyVisit, error)
	VisitorTotals(ctx context.Context) (uniqueVisitors int64, totalVisits int64, err error)
}

// Store bundles every persistence concern the server needs.
type Store interface {
	UserStore
	SessionStore
	ProfileStore
	VisitStore
	Close()
}
