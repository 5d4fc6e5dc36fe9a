// internal/adapter/storage/source_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"

	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/source"
)

const sourceColumns = `id, name, platform, enabled, status, last_check, error_message, config`

// CreateSource saves a source. Platforms are unique.
func (s *PostgresStore) CreateSource(ctx context.Context, src source.Source) (source.Source, error) {
	query := `
		INSERT INTO sources (name, platform, enabled, status, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if src.Status == "" {
		src.Status = source.StatusActive
	}
	if src.Config == nil {
		src.Config = map[string]interface{}{}
	}
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		return source.Source{}, fmt.Errorf("error marshaling source config: %w", err)
	}

	err = s.db.QueryRow(
		ctx,
		query,
		src.Name,
		src.Platform,
		src.Enabled,
		string(src.Status),
		configJSON,
	).Scan(&src.ID)
	if err != nil {
		return source.Source{}, fmt.Errorf("error inserting source: %w", err)
	}

	src.LastCheck = nil
	return src, nil
}

// GetSource retrieves a source by ID
func (s *PostgresStore) GetSource(ctx context.Context, id int64) (*source.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	src, err := scanSource(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("source %d", id))
	}
	return src, nil
}

// SourceByPlatform retrieves a source by its platform key
func (s *PostgresStore) SourceByPlatform(ctx context.Context, platform string) (*source.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE platform = $1`

	src, err := scanSource(s.db.QueryRow(ctx, query, platform))
	if err != nil {
		return nil, notFound(err, "source "+platform)
	}
	return src, nil
}

// ListSources returns all sources ordered by id
func (s *PostgresStore) ListSources(ctx context.Context) ([]source.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	sources := []source.Source{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning source: %w", err)
		}
		sources = append(sources, *src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return sources, nil
}

// UpdateSourceStatus sets status, lastCheck and errorMessage.
// Unknown platforms are ignored.
func (s *PostgresStore) UpdateSourceStatus(ctx context.Context, platform string, status source.Status, message string) error {
	query := `
		UPDATE sources
		SET status = $2, last_check = NOW(), error_message = $3
		WHERE platform = $1
	`

	if _, err := s.db.Exec(ctx, query, platform, string(status), nullable(message)); err != nil {
		return fmt.Errorf("error updating source %s: %w", platform, err)
	}
	return nil
}

func scanSource(row pgx.Row) (*source.Source, error) {
	var src source.Source
	var status string
	var configJSON []byte

	err := row.Scan(
		&src.ID,
		&src.Name,
		&src.Platform,
		&src.Enabled,
		&status,
		&src.LastCheck,
		&src.ErrorMessage,
		&configJSON,
	)
	if err != nil {
		return nil, err
	}

	src.Status = source.Status(status)
	if err := json.Unmarshal(configJSON, &src.Config); err != nil {
		return nil, fmt.Errorf("error unmarshaling source config: %w", err)
	}

	return &src, nil
}

// GetSetting retrieves a setting by key
func (s *PostgresStore) GetSetting(ctx context.Context, key string) (*setting.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings WHERE key = $1`

	var st setting.Setting
	var value []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&st.Key, &value, &st.UpdatedAt); err != nil {
		return nil, notFound(err, "setting "+key)
	}
	st.Value = value
	return &st, nil
}

// ListSettings returns all settings ordered by key
func (s *PostgresStore) ListSettings(ctx context.Context) ([]setting.Setting, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	settings := []setting.Setting{}
	for rows.Next() {
		var st setting.Setting
		var value []byte
		if err := rows.Scan(&st.Key, &value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning setting: %w", err)
		}
		st.Value = value
		settings = append(settings, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return settings, nil
}

// UpdateSetting creates or replaces a setting value
func (s *PostgresStore) UpdateSetting(ctx context.Context, key string, value json.RawMessage) (setting.Setting, error) {
	if !json.Valid(value) {
		return setting.Setting{}, fmt.Errorf("setting %s: value is not valid JSON", key)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = $2, updated_at = NOW()
		RETURNING updated_at
	`

	st := setting.Setting{Key: key, Value: value}
	if err := s.db.QueryRow(ctx, query, key, []byte(value)).Scan(&st.UpdatedAt); err != nil {
		return setting.Setting{}, fmt.Errorf("error upserting setting %s: %w", key, err)
	}
	return st, nil
}
