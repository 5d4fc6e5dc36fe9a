// internal/adapter/storage/report_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"

	"trendscope/internal/domain/report"
)

const reportColumns = `
	id, date, trends_count, suggestions_count, status, emails_sent, content, created_at
`

// CreateReport saves a report
func (s *PostgresStore) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	query := `
		INSERT INTO reports (date, trends_count, suggestions_count, status, emails_sent, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	contentJSON, err := json.Marshal(r.Content)
	if err != nil {
		return report.Report{}, fmt.Errorf("error marshaling report content: %w", err)
	}

	err = s.db.QueryRow(
		ctx,
		query,
		r.Date,
		r.TrendsCount,
		r.SuggestionsCount,
		string(r.Status),
		r.EmailsSent,
		contentJSON,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return report.Report{}, fmt.Errorf("error inserting report: %w", err)
	}

	return r, nil
}

// GetReport retrieves a report by ID
func (s *PostgresStore) GetReport(ctx context.Context, id int64) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	r, err := scanReport(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("report %d", id))
	}
	return r, nil
}

// ReportByDate returns the earliest report recorded for a calendar day
func (s *PostgresStore) ReportByDate(ctx context.Context, date string) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE date = $1 ORDER BY id ASC LIMIT 1`

	r, err := scanReport(s.db.QueryRow(ctx, query, date))
	if err != nil {
		return nil, notFound(err, "report for "+date)
	}
	return r, nil
}

// ListReports returns all reports, newest first
func (s *PostgresStore) ListReports(ctx context.Context) ([]report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	reports := []report.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		reports = append(reports, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

func scanReport(row pgx.Row) (*report.Report, error) {
	var r report.Report
	var status string
	var contentJSON []byte

	err := row.Scan(
		&r.ID,
		&r.Date,
		&r.TrendsCount,
		&r.SuggestionsCount,
		&status,
		&r.EmailsSent,
		&contentJSON,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = report.Status(status)
	if err := json.Unmarshal(contentJSON, &r.Content); err != nil {
		return nil, fmt.Errorf("error unmarshaling report content: %w", err)
	}

	return &r, nil
}
