package report

import (
	"time"

	"trendscope/internal/domain/trend"
)

// Status is the delivery state of a report
type Status string

const (
	StatusGenerated Status = "generated"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// DateLayout is the calendar-day format used for Report.Date
const DateLayout = "2006-01-02"

// SnapshotLimit caps how many trends and suggestions a report keeps
const SnapshotLimit = 10

// Content is the snapshot stored with a report
type Content struct {
	Summary     string             `json:"summary,omitempty"`
	Trends      []trend.Trend      `json:"trends,omitempty"`
	Suggestions []trend.Suggestion `json:"suggestions,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Report records one digest run
type Report struct {
	ID               int64     `json:"id"`
	Date             string    `json:"date"`
	TrendsCount      int       `json:"trendsCount"`
	SuggestionsCount int       `json:"suggestionsCount"`
	Status           Status    `json:"status"`
	EmailsSent       int       `json:"emailsSent"`
	Content          Content   `json:"content"`
	CreatedAt        time.Time `json:"createdAt"`
}
