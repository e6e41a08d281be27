package dto

type RecordVisitRequest struct {
	VisitorID string `json:"visitorId"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
}

type RecordVisitResponse struct {
	VisitorID string `json:"visitorId"`
}

type MonthlyVisits struct {
	Date           string `json:"date"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	Visitors       int64  `json:"visitors"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

type VisitTotals struct {
	UniqueVisitors int64 `json:"uniqueVisitors"`
	TotalVisits    int64 `json:"totalVisits"`
}

type AnalyticsResponse struct {
	Monthly []MonthlyVisits `json:"monthly"`
	Totals  VisitTotals     `json:"totals"`
}
