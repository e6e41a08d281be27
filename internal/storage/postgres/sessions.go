package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// UpsertSession stores session as the only session for its username in one statement.
func (s *Store) UpsertSession(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (username, token, permissions, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE
		SET token = EXCLUDED.token,
			permissions = EXCLUDED.permissions,
			role = EXCLUDED.role,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`
	_, err := s.pool.Exec(ctx, query,
		session.Username,
		session.Token,
		models.PermissionStrings(session.Permissions),
		string(session.Role),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrAlreadyExists
	}
	return err
}

// FindSessionByToken fetches the session holding token.
func (s *Store) FindSessionByToken(ctx context.Context, token string) (models.Session, error) {
	const query = `
		SELECT username, token, permissions, role, created_at, expires_at
		FROM sessions
		WHERE token = $1`
	var session models.Session
	var perms []string
	var role string
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&session.Username, &session.Token, &perms, &role, &session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, err
	}
	session.Role = models.Role(role)
	session.Permissions = toPermissions(perms)
	return session, nil
}

// DeleteSessionByToken removes the session holding token.
func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	return s.deleteSession(ctx, `DELETE FROM sessions WHERE token = $1`, token)
}

// DeleteSessionByUsername removes the session owned by username.
func (s *Store) DeleteSessionByUsername(ctx context.Context, username string) error {
	return s.deleteSession(ctx, `DELETE FROM sessions WHERE username = $1`, username)
}

func (s *Store) deleteSession(ctx context.Context, query, arg string) error {
	tag, err := s.pool.Exec(ctx, query, arg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
