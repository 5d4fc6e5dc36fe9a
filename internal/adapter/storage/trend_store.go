// internal/adapter/storage/trend_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"trendscope/internal/domain/trend"
)

const trendColumns = `
	id, title, description, category, sources,
	confidence, trend_score, change_percentage, impact, created_at
`

// CreateTrend saves a trend and returns it with id and createdAt set
func (s *PostgresStore) CreateTrend(ctx context.Context, t trend.Trend) (trend.Trend, error) {
	query := `
		INSERT INTO trends (
			title, description, category, sources,
			confidence, trend_score, change_percentage, impact
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	if t.Sources == nil {
		t.Sources = []trend.RawSignal{}
	}
	sourcesJSON, err := json.Marshal(t.Sources)
	if err != nil {
		return trend.Trend{}, fmt.Errorf("error marshaling sources: %w", err)
	}

	err = s.db.QueryRow(
		ctx,
		query,
		t.Title,
		t.Description,
		t.Category,
		sourcesJSON,
		t.Confidence,
		t.TrendScore,
		t.ChangePercentage,
		string(t.Impact),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return trend.Trend{}, fmt.Errorf("error inserting trend: %w", err)
	}

	return t, nil
}

// GetTrend retrieves a trend by ID
func (s *PostgresStore) GetTrend(ctx context.Context, id int64) (*trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends WHERE id = $1`

	t, err := scanTrend(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("trend %d", id))
	}
	return t, nil
}

// ListTrends returns all trends, newest first
func (s *PostgresStore) ListTrends(ctx context.Context) ([]trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends ORDER BY created_at DESC, id DESC`
	return s.queryTrends(ctx, query)
}

// RecentTrends returns trends created within the window, newest first
func (s *PostgresStore) RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error) {
	query := `SELECT ` + trendColumns + `
		FROM trends
		WHERE created_at > $1
		ORDER BY created_at DESC, id DESC
	`
	return s.queryTrends(ctx, query, time.Now().Add(-window))
}

func (s *PostgresStore) queryTrends(ctx context.Context, query string, args ...interface{}) ([]trend.Trend, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	trends := []trend.Trend{}
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning trend: %w", err)
		}
		trends = append(trends, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}

	return trends, nil
}

func scanTrend(row pgx.Row) (*trend.Trend, error) {
	var t trend.Trend
	var impact string
	var sourcesJSON []byte

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Category,
		&sourcesJSON,
		&t.Confidence,
		&t.TrendScore,
		&t.ChangePercentage,
		&impact,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Impact = trend.Impact(impact)
	if err := json.Unmarshal(sourcesJSON, &t.Sources); err != nil {
		return nil, fmt.Errorf("error unmarshaling sources: %w", err)
	}

	return &t, nil
}

// CreateSuggestion saves a suggestion
func (s *PostgresStore) CreateSuggestion(ctx context.Context, sg trend.Suggestion) (trend.Suggestion, error) {
	query := `
		INSERT INTO suggestions (trend_id, title, description, impact, effort, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(
		ctx,
		query,
		sg.TrendID,
		sg.Title,
		sg.Description,
		string(sg.Impact),
		string(sg.Effort),
		string(sg.Type),
	).Scan(&sg.ID, &sg.CreatedAt)
	if err != nil {
		return trend.Suggestion{}, fmt.Errorf("error inserting suggestion: %w", err)
	}

	return sg, nil
}

const suggestionColumns = `id, trend_id, title, description, impact, effort, type, created_at`

// GetSuggestion retrieves a suggestion by ID
func (s *PostgresStore) GetSuggestion(ctx context.Context, id int64) (*trend.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE id = $1`

	sg, err := scanSuggestion(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("suggestion %d", id))
	}
	return sg, nil
}

// ListSuggestions returns all suggestions, newest first
func (s *PostgresStore) ListSuggestions(ctx context.Context) ([]trend.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions ORDER BY created_at DESC, id DESC`
	return s.querySuggestions(ctx, query)
}

// RecentSuggestions returns suggestions created within the window, newest first
func (s *PostgresStore) RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + `
		FROM suggestions
		WHERE created_at > $1
		ORDER BY created_at DESC, id DESC
	`
	return s.querySuggestions(ctx, query, time.Now().Add(-window))
}

// SuggestionsByTrend returns suggestions linked to a trend, newest first
func (s *PostgresStore) SuggestionsByTrend(ctx context.Context, trendID int64) ([]trend.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + `
		FROM suggestions
		WHERE trend_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return s.querySuggestions(ctx, query, trendID)
}

func (s *PostgresStore) querySuggestions(ctx context.Context, query string, args ...interface{}) ([]trend.Suggestion, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	suggestions := []trend.Suggestion{}
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning suggestion: %w", err)
		}
		suggestions = append(suggestions, *sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

func scanSuggestion(row pgx.Row) (*trend.Suggestion, error) {
	var sg trend.Suggestion
	var impact, effort, kind string

	err := row.Scan(
		&sg.ID,
		&sg.TrendID,
		&sg.Title,
		&sg.Description,
		&impact,
		&effort,
		&kind,
		&sg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sg.Impact = trend.Impact(impact)
	sg.Effort = trend.Effort(effort)
	sg.Type = trend.SuggestionType(kind)
	return &sg, nil
}
