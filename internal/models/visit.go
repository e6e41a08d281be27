package models

import "time"

// Visitor tracks a returning browser by its client-held id.
type Visitor struct {
	VisitorID  string    `json:"visitor_id"`
	FirstVisit time.Time `json:"first_visit"`
	LastVisit  time.Time `json:"last_visit"`
	Visits     int64     `json:"visits"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// DailyVisit aggregates visit counters for one UTC day.
type DailyVisit struct {
	Date           time.Time `json:"date"`
	Visitors       int64     `json:"visitors"`
	UniqueVisitors int64     `json:"unique_visitors"`
}
