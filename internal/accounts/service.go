// Package accounts manages the credential store: registration, edits,
// deletion, and the bootstrap admin account.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/sessions"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// AdminUsername is the account created from ADMIN_PASSWORD at startup.
const AdminUsername = "Admin"

// ErrValidation wraps every rejected input.
var ErrValidation = errors.New("validation error")

// Hasher hashes new passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// SessionKiller invalidates a user's active session.
type SessionKiller interface {
	KillByUsername(ctx context.Context, username string) error
}

// EditInput describes a user edit. Empty fields are left unchanged.
type EditInput struct {
	Username    string
	NewUsername string
	Password    string
	Role        string
}

// Service implements user management on top of the credential store.
type Service struct {
	users    storage.UserStore
	sessions SessionKiller
	hasher   Hasher
	log      logrus.FieldLogger
}

// NewService builds a Service.
func NewService(users storage.UserStore, sessions SessionKiller, hasher Hasher, log logrus.FieldLogger) *Service {
	return &Service{users: users, sessions: sessions, hasher: hasher, log: log}
}

// Register creates a user. role defaults to User.
func (s *Service) Register(ctx context.Context, username, password, role string) (models.User, error) {
	name := models.SanitizeUsername(username)
	if name == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	r := models.RoleUser
	if role != "" {
		var ok bool
		if r, ok = models.ParseRole(role); !ok {
			return models.User{}, fmt.Errorf("%w: unknown role", ErrValidation)
		}
	}
	hash, err := s.hash(password)
	if err != nil {
		return models.User{}, err
	}

	created, err := s.users.CreateUser(ctx, models.User{
		Username:     name,
		PasswordHash: hash,
		Role:         r,
		Permissions:  models.PermissionsFor(r),
	})
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Edit renames a user, changes its password or role, and always ends the
// user's current session first.
func (s *Service) Edit(ctx context.Context, in EditInput) (models.User, error) {
	current := models.SanitizeUsername(in.Username)
	if current == "" {
		return models.User{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	user, err := s.users.FindByUsername(ctx, current)
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	if in.NewUsername != "" {
		renamed := models.SanitizeUsername(in.NewUsername)
		if renamed == "" {
			return models.User{}, fmt.Errorf("%w: new username is empty after sanitizing", ErrValidation)
		}
		user.Username = renamed
	}
	if in.Password != "" {
		if user.PasswordHash, err = s.hash(in.Password); err != nil {
			return models.User{}, err
		}
	}
	if in.Role != "" {
		role, ok := models.ParseRole(in.Role)
		if !ok {
			return models.User{}, fmt.Errorf("%w: unknown role", ErrValidation)
		}
		user.Role = role
	}
	user.Permissions = models.PermissionsFor(user.Role)

	updated, err := s.users.UpdateUser(ctx, current, user)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	// A failed update leaves the caller logged in. On success both names
	// lose their session so the new identity must log in again.
	if err := s.endSession(ctx, current); err != nil {
		return models.User{}, err
	}
	if updated.Username != current {
		if err := s.endSession(ctx, updated.Username); err != nil {
			return models.User{}, err
		}
	}
	return updated, nil
}

// Delete removes a user and its session.
func (s *Service) Delete(ctx context.Context, username string) error {
	name := models.SanitizeUsername(username)
	if name == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if err := s.users.DeleteUser(ctx, name); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return s.endSession(ctx, name)
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// EnsureAdmin creates the Admin account, or resets its password, role and
// permissions when it already exists.
func (s *Service) EnsureAdmin(ctx context.Context, password string) error {
	if password == "" {
		return fmt.Errorf("%w: admin password is required", ErrValidation)
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	admin, err := s.users.FindByUsername(ctx, AdminUsername)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = s.users.CreateUser(ctx, models.User{
			Username:     AdminUsername,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Permissions:  models.PermissionsFor(models.RoleAdmin),
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		s.log.Info("admin user created")
		return nil
	case err != nil:
		return fmt.Errorf("find admin: %w", err)
	}

	admin.PasswordHash = hash
	admin.Role = models.RoleAdmin
	admin.Permissions = models.PermissionsFor(models.RoleAdmin)
	if _, err := s.users.UpdateUser(ctx, AdminUsername, admin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	s.log.Info("admin user updated")
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, auth.MaxPasswordBytes)
		}
		return "", err
	}
	return hash, nil
}

func (s *Service) endSession(ctx context.Context, username string) error {
	err := s.sessions.KillByUsername(ctx, username)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
