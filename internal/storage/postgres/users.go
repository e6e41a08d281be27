package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

const userColumns = `username, password_hash, role, permissions, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, role, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.Username, user.PasswordHash, string(user.Role), models.PermissionStrings(user.Permissions))
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser rewrites the row stored under username.
func (s *Store) UpdateUser(ctx context.Context, username string, user models.User) (models.User, error) {
	const query = `
		UPDATE users
		SET username = $2, password_hash = $3, role = $4, permissions = $5
		WHERE username = $1
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, username, user.Username, user.PasswordHash, string(user.Role), models.PermissionStrings(user.Permissions))
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return updated, nil
}

// DeleteUser removes a user row.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	var perms []string
	if err := row.Scan(&user.Username, &user.PasswordHash, &role, &perms, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	user.Permissions = toPermissions(perms)
	return user, nil
}
