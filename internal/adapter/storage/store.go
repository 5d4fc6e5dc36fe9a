// internal/adapter/storage/store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trendscope/internal/domain/report"
	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

// ErrNotFound is returned when a lookup matches nothing
var ErrNotFound = errors.New("not found")

// Analytics summarizes store contents for the dashboard
type Analytics struct {
	TotalTrends        int    `json:"totalTrends"`
	TotalSuggestions   int    `json:"totalSuggestions"`
	TotalReports       int    `json:"totalReports"`
	ActiveSourcesCount int    `json:"activeSourcesCount"`
	LastReportDate     string `json:"lastReportDate,omitempty"`
}

// Store is the full persistence contract. Services declare the subsets they use.
type Store interface {
	CreateTrend(ctx context.Context, t trend.Trend) (trend.Trend, error)
	GetTrend(ctx context.Context, id int64) (*trend.Trend, error)
	ListTrends(ctx context.Context) ([]trend.Trend, error)
	RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error)

	CreateSuggestion(ctx context.Context, s trend.Suggestion) (trend.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (*trend.Suggestion, error)
	ListSuggestions(ctx context.Context) ([]trend.Suggestion, error)
	RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error)
	SuggestionsByTrend(ctx context.Context, trendID int64) ([]trend.Suggestion, error)

	CreateReport(ctx context.Context, r report.Report) (report.Report, error)
	GetReport(ctx context.Context, id int64) (*report.Report, error)
	ListReports(ctx context.Context) ([]report.Report, error)
	ReportByDate(ctx context.Context, date string) (*report.Report, error)

	CreateSource(ctx context.Context, s source.Source) (source.Source, error)
	GetSource(ctx context.Context, id int64) (*source.Source, error)
	ListSources(ctx context.Context) ([]source.Source, error)
	SourceByPlatform(ctx context.Context, platform string) (*source.Source, error)
	UpdateSourceStatus(ctx context.Context, platform string, status source.Status, message string) error

	GetSetting(ctx context.Context, key string) (*setting.Setting, error)
	ListSettings(ctx context.Context) ([]setting.Setting, error)
	UpdateSetting(ctx context.Context, key string, value json.RawMessage) (setting.Setting, error)

	Analytics(ctx context.Context) (Analytics, error)
}

// Seed inserts the default sources and settings that are not already present
func Seed(ctx context.Context, s Store) error {
	for _, src := range source.Defaults() {
		_, err := s.SourceByPlatform(ctx, src.Platform)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("error looking up source %s: %w", src.Platform, err)
		}
		if _, err := s.CreateSource(ctx, src); err != nil {
			return fmt.Errorf("error seeding source %s: %w", src.Platform, err)
		}
	}

	for _, def := range setting.Defaults() {
		_, err := s.GetSetting(ctx, def.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("error looking up setting %s: %w", def.Key, err)
		}
		value, err := json.Marshal(def.Value)
		if err != nil {
			return fmt.Errorf("error marshaling setting %s: %w", def.Key, err)
		}
		if _, err := s.UpdateSetting(ctx, def.Key, value); err != nil {
			return fmt.Errorf("error seeding setting %s: %w", def.Key, err)
		}
	}

	return nil
}

// nullable converts an empty message into a nil pointer
func nullable(message string) *string {
	if message == "" {
		return nil
	}
	return &message
}
