// Package analytics records anonymous site visits and builds the monthly report.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

// ReportMonths is how many calendar months the report covers, current month included.
const ReportMonths = 6

const maxVisitorIDLength = 64

var visitorIDDisallowed = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// Service records visits into a VisitStore.
type Service struct {
	store storage.VisitStore
	now   func() time.Time
}

// NewService builds a Service. now defaults to time.Now.
func NewService(store storage.VisitStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// RecordVisit registers a page view and returns the id the client should keep.
func (s *Service) RecordVisit(ctx context.Context, in dto.RecordVisitRequest) (string, error) {
	now := s.now().UTC()
	today := startOfDay(now)

	id := sanitizeVisitorID(in.VisitorID)
	if id == "" {
		id = uuid.NewString()
	}

	visitor, err := s.store.FindVisitor(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		err = s.store.CreateVisitor(ctx, models.Visitor{
			VisitorID:  id,
			FirstVisit: now,
			LastVisit:  now,
			Visits:     1,
			Referrer:   in.Referrer,
			UserAgent:  in.UserAgent,
		})
		if err != nil {
			return "", fmt.Errorf("create visitor: %w", err)
		}
		if err := s.store.IncrementDaily(ctx, today, 1, 1); err != nil {
			return "", fmt.Errorf("increment daily visits: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("find visitor: %w", err)
	}

	var unique int64
	if !startOfDay(visitor.LastVisit.UTC()).Equal(today) {
		unique = 1
	}
	visitor.LastVisit = now
	visitor.Visits++
	if in.Referrer != "" {
		visitor.Referrer = in.Referrer
	}
	if in.UserAgent != "" {
		visitor.UserAgent = in.UserAgent
	}
	if err := s.store.UpdateVisitor(ctx, visitor); err != nil {
		return "", fmt.Errorf("update visitor: %w", err)
	}
	if err := s.store.IncrementDaily(ctx, today, 1, unique); err != nil {
		return "", fmt.Errorf("increment daily visits: %w", err)
	}
	return id, nil
}

// Report aggregates the last ReportMonths months by calendar month and adds
// lifetime totals.
func (s *Service) Report(ctx context.Context) (dto.AnalyticsResponse, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month()-(ReportMonths-1), 1, 0, 0, 0, 0, time.UTC)

	daily, err := s.store.DailyVisitsSince(ctx, since)
	if err != nil {
		return dto.AnalyticsResponse{}, fmt.Errorf("load daily visits: %w", err)
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	buckets := map[monthKey]*dto.MonthlyVisits{}
	for _, d := range daily {
		date := d.Date.UTC()
		key := monthKey{date.Year(), date.Month()}
		b, ok := buckets[key]
		if !ok {
			b = &dto.MonthlyVisits{
				Date:  date.Month().String()[:3],
				Month: int(date.Month()) - 1,
				Year:  date.Year(),
			}
			buckets[key] = b
		}
		b.Visitors += d.Visitors
		b.UniqueVisitors += d.UniqueVisitors
	}

	monthly := make([]dto.MonthlyVisits, 0, len(buckets))
	for _, b := range buckets {
		monthly = append(monthly, *b)
	}
	sort.Slice(monthly, func(i, j int) bool {
		if monthly[i].Year != monthly[j].Year {
			return monthly[i].Year < monthly[j].Year
		}
		return monthly[i].Month < monthly[j].Month
	})

	unique, total, err := s.store.VisitorTotals(ctx)
	if err != nil {
		return dto.AnalyticsResponse{}, fmt.Errorf("load visitor totals: %w", err)
	}
	return dto.AnalyticsResponse{
		Monthly: monthly,
		Totals:  dto.VisitTotals{UniqueVisitors: unique, TotalVisits: total},
	}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sanitizeVisitorID(id string) string {
	id = visitorIDDisallowed.ReplaceAllString(id, "")
	if len(id) > maxVisitorIDLength {
		id = id[:maxVisitorIDLength]
	}
	return id
}
