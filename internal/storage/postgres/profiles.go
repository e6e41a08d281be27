package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

const profileColumns = `id, title, url, image, color`

// ListProfiles returns profiles in creation order.
func (s *Store) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// FindProfile fetches a profile by id.
func (s *Store) FindProfile(ctx context.Context, id string) (models.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// CreateProfile inserts a profile.
func (s *Store) CreateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	const query = `
		INSERT INTO profiles (id, title, url, image, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + profileColumns
	created, err := scanProfile(s.pool.QueryRow(ctx, query, p.ID, p.Title, p.URL, p.Image, p.Color))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Profile{}, storage.ErrAlreadyExists
		}
		return models.Profile{}, err
	}
	return created, nil
}

// UpdateProfile overwrites a profile's fields.
func (s *Store) UpdateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	const query = `
		UPDATE profiles SET title = $2, url = $3, image = $4, color = $5
		WHERE id = $1
		RETURNING ` + profileColumns
	return scanProfile(s.pool.QueryRow(ctx, query, p.ID, p.Title, p.URL, p.Image, p.Color))
}

// DeleteProfile removes a profile.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Title, &p.URL, &p.Image, &p.Color); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, storage.ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}
