package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// FindVisitor fetches a visitor by id.
func (s *Store) FindVisitor(ctx context.Context, visitorID string) (models.Visitor, error) {
	const query = `
		SELECT visitor_id, first_visit, last_visit, visits, referrer, user_agent
		FROM visitors WHERE visitor_id = $1`
	var v models.Visitor
	err := s.pool.QueryRow(ctx, query, visitorID).Scan(&v.VisitorID, &v.FirstVisit, &v.LastVisit, &v.Visits, &v.Referrer, &v.UserAgent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Visitor{}, storage.ErrNotFound
		}
		return models.Visitor{}, err
	}
	return v, nil
}

// CreateVisitor inserts a visitor.
func (s *Store) CreateVisitor(ctx context.Context, v models.Visitor) error {
	const query = `
		INSERT INTO visitors (visitor_id, first_visit, last_visit, visits, referrer, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, v.VisitorID, v.FirstVisit, v.LastVisit, v.Visits, v.Referrer, v.UserAgent)
	if isUniqueViolation(err) {
		return storage.ErrAlreadyExists
	}
	return err
}

// UpdateVisitor overwrites a visitor's counters and metadata.
func (s *Store) UpdateVisitor(ctx context.Context, v models.Visitor) error {
	const query = `
		UPDATE visitors SET last_visit = $2, visits = $3, referrer = $4, user_agent = $5
		WHERE visitor_id = $1`
	tag, err := s.pool.Exec(ctx, query, v.VisitorID, v.LastVisit, v.Visits, v.Referrer, v.UserAgent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementDaily upserts the counters for day.
func (s *Store) IncrementDaily(ctx context.Context, day time.Time, visitors, uniqueVisitors int64) error {
	const query = `
		INSERT INTO daily_visits (day, visitors, unique_visitors)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO UPDATE
		SET visitors = daily_visits.visitors + EXCLUDED.visitors,
			unique_visitors = daily_visits.unique_visitors + EXCLUDED.unique_visitors`
	_, err := s.pool.Exec(ctx, query, day, visitors, uniqueVisitors)
	return err
}

// DailyVisitsSince returns daily counters on or after since, oldest first.
func (s *Store) DailyVisitsSince(ctx context.Context, since time.Time) ([]models.DailyVisit, error) {
	const query = `
		SELECT day, visitors, unique_visitors
		FROM daily_visits WHERE day >= $1 ORDER BY day`
	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyVisit
	for rows.Next() {
		var d models.DailyVisit
		if err := rows.Scan(&d.Date, &d.Visitors, &d.UniqueVisitors); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// VisitorTotals returns the number of distinct visitors and the sum of their visits.
func (s *Store) VisitorTotals(ctx context.Context) (int64, int64, error) {
	var unique, total int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(visits), 0)::BIGINT FROM visitors`).Scan(&unique, &total)
	return unique, total, err
}
