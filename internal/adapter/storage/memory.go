// internal/adapter/storage/memory.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"trendscope/internal/domain/report"
	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

// MemoryStore is an in-process Store with auto-increment ids.
// It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	trends      map[int64]trend.Trend
	suggestions map[int64]trend.Suggestion
	reports     map[int64]report.Report
	sources     map[int64]source.Source
	settings    map[string]setting.Setting

	nextTrendID      int64
	nextSuggestionID int64
	nextReportID     int64
	nextSourceID     int64

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store. Use Seed to load defaults.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trends:           make(map[int64]trend.Trend),
		suggestions:      make(map[int64]trend.Suggestion),
		reports:          make(map[int64]report.Report),
		sources:          make(map[int64]source.Source),
		settings:         make(map[string]setting.Setting),
		nextTrendID:      1,
		nextSuggestionID: 1,
		nextReportID:     1,
		nextSourceID:     1,
		now:              time.Now,
	}
}

// SetClock overrides the time source used for createdAt stamps and lookback windows
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// CreateTrend stores a new trend and returns it with id and createdAt set
func (s *MemoryStore) CreateTrend(ctx context.Context, t trend.Trend) (trend.Trend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.nextTrendID
	s.nextTrendID++
	t.CreatedAt = s.now()
	t.Sources = cloneSignals(t.Sources)

	s.trends[t.ID] = t
	return t, nil
}

// GetTrend retrieves a trend by ID
func (s *MemoryStore) GetTrend(ctx context.Context, id int64) (*trend.Trend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trends[id]
	if !ok {
		return nil, fmt.Errorf("trend %d: %w", id, ErrNotFound)
	}
	t.Sources = cloneSignals(t.Sources)
	return &t, nil
}

// ListTrends returns all trends, newest first
func (s *MemoryStore) ListTrends(ctx context.Context) ([]trend.Trend, error) {
	return s.trendsSince(time.Time{}), nil
}

// RecentTrends returns trends created within the window, newest first
func (s *MemoryStore) RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error) {
	s.mu.RLock()
	cutoff := s.now().Add(-window)
	s.mu.RUnlock()
	return s.trendsSince(cutoff), nil
}

func (s *MemoryStore) trendsSince(cutoff time.Time) []trend.Trend {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trends := make([]trend.Trend, 0, len(s.trends))
	for _, t := range s.trends {
		if !cutoff.IsZero() && !t.CreatedAt.After(cutoff) {
			continue
		}
		t.Sources = cloneSignals(t.Sources)
		trends = append(trends, t)
	}
	sort.Slice(trends, func(i, j int) bool {
		return newer(trends[i].CreatedAt, trends[i].ID, trends[j].CreatedAt, trends[j].ID)
	})
	return trends
}

// CreateSuggestion stores a new suggestion
func (s *MemoryStore) CreateSuggestion(ctx context.Context, sg trend.Suggestion) (trend.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg.ID = s.nextSuggestionID
	s.nextSuggestionID++
	sg.CreatedAt = s.now()
	if sg.TrendID != nil {
		id := *sg.TrendID
		sg.TrendID = &id
	}

	s.suggestions[sg.ID] = sg
	return sg, nil
}

// GetSuggestion retrieves a suggestion by ID
func (s *MemoryStore) GetSuggestion(ctx context.Context, id int64) (*trend.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %d: %w", id, ErrNotFound)
	}
	return &sg, nil
}

// ListSuggestions returns all suggestions, newest first
func (s *MemoryStore) ListSuggestions(ctx context.Context) ([]trend.Suggestion, error) {
	return s.suggestionsWhere(func(trend.Suggestion) bool { return true }), nil
}

// RecentSuggestions returns suggestions created within the window, newest first
func (s *MemoryStore) RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error) {
	s.mu.RLock()
	cutoff := s.now().Add(-window)
	s.mu.RUnlock()
	return s.suggestionsWhere(func(sg trend.Suggestion) bool {
		return sg.CreatedAt.After(cutoff)
	}), nil
}

// SuggestionsByTrend returns suggestions linked to a trend, newest first
func (s *MemoryStore) SuggestionsByTrend(ctx context.Context, trendID int64) ([]trend.Suggestion, error) {
	return s.suggestionsWhere(func(sg trend.Suggestion) bool {
		return sg.TrendID != nil && *sg.TrendID == trendID
	}), nil
}

func (s *MemoryStore) suggestionsWhere(keep func(trend.Suggestion) bool) []trend.Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suggestions := make([]trend.Suggestion, 0, len(s.suggestions))
	for _, sg := range s.suggestions {
		if keep(sg) {
			suggestions = append(suggestions, sg)
		}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return newer(suggestions[i].CreatedAt, suggestions[i].ID, suggestions[j].CreatedAt, suggestions[j].ID)
	})
	return suggestions
}

// CreateReport stores a new report
func (s *MemoryStore) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextReportID
	s.nextReportID++
	r.CreatedAt = s.now()

	s.reports[r.ID] = r
	return r, nil
}

// GetReport retrieves a report by ID
func (s *MemoryStore) GetReport(ctx context.Context, id int64) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	return &r, nil
}

// ListReports returns all reports, newest first
func (s *MemoryStore) ListReports(ctx context.Context) ([]report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]report.Report, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return newer(reports[i].CreatedAt, reports[i].ID, reports[j].CreatedAt, reports[j].ID)
	})
	return reports, nil
}

// ReportByDate returns the earliest report recorded for a calendar day
func (s *MemoryStore) ReportByDate(ctx context.Context, date string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *report.Report
	for _, r := range s.reports {
		if r.Date != date {
			continue
		}
		if found == nil || r.ID < found.ID {
			r := r
			found = &r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("report for %s: %w", date, ErrNotFound)
	}
	return found, nil
}

// CreateSource stores a new source. Platforms are unique.
func (s *MemoryStore) CreateSource(ctx context.Context, src source.Source) (source.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sources {
		if existing.Platform == src.Platform {
			return source.Source{}, fmt.Errorf("source for platform %s already exists", src.Platform)
		}
	}

	src.ID = s.nextSourceID
	s.nextSourceID++
	src.LastCheck = nil
	if src.Status == "" {
		src.Status = source.StatusActive
	}

	s.sources[src.ID] = src
	return src, nil
}

// GetSource retrieves a source by ID
func (s *MemoryStore) GetSource(ctx context.Context, id int64) (*source.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return &src, nil
}

// ListSources returns all sources ordered by id
func (s *MemoryStore) ListSources(ctx context.Context) ([]source.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]source.Source, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

// SourceByPlatform retrieves a source by its platform key
func (s *MemoryStore) SourceByPlatform(ctx context.Context, platform string) (*source.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if src.Platform == platform {
			return &src, nil
		}
	}
	return nil, fmt.Errorf("source %s: %w", platform, ErrNotFound)
}

// UpdateSourceStatus sets status, lastCheck and errorMessage in place.
// Unknown platforms are ignored.
func (s *MemoryStore) UpdateSourceStatus(ctx context.Context, platform string, status source.Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, src := range s.sources {
		if src.Platform != platform {
			continue
		}
		now := s.now()
		src.Status = status
		src.LastCheck = &now
		src.ErrorMessage = nullable(message)
		s.sources[id] = src
		return nil
	}
	return nil
}

// GetSetting retrieves a setting by key
func (s *MemoryStore) GetSetting(ctx context.Context, key string) (*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[key]
	if !ok {
		return nil, fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	st.Value = append(json.RawMessage(nil), st.Value...)
	return &st, nil
}

// ListSettings returns all settings ordered by key
func (s *MemoryStore) ListSettings(ctx context.Context) ([]setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make([]setting.Setting, 0, len(s.settings))
	for _, st := range s.settings {
		settings = append(settings, st)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

// UpdateSetting creates or replaces a setting value
func (s *MemoryStore) UpdateSetting(ctx context.Context, key string, value json.RawMessage) (setting.Setting, error) {
	if !json.Valid(value) {
		return setting.Setting{}, fmt.Errorf("setting %s: value is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := setting.Setting{
		Key:       key,
		Value:     append(json.RawMessage(nil), value...),
		UpdatedAt: s.now(),
	}
	s.settings[key] = st
	return st, nil
}

// Analytics summarizes store contents
func (s *MemoryStore) Analytics(ctx context.Context) (Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := Analytics{
		TotalTrends:      len(s.trends),
		TotalSuggestions: len(s.suggestions),
		TotalReports:     len(s.reports),
	}
	for _, src := range s.sources {
		if src.Platform != source.SystemPlatform && src.Enabled && src.Status == source.StatusActive {
			a.ActiveSourcesCount++
		}
	}

	var latest *report.Report
	for _, r := range s.reports {
		if latest == nil || newer(r.CreatedAt, r.ID, latest.CreatedAt, latest.ID) {
			r := r
			latest = &r
		}
	}
	if latest != nil {
		a.LastReportDate = latest.Date
	}
	return a, nil
}

// newer orders by createdAt descending, then id descending
func newer(aTime time.Time, aID int64, bTime time.Time, bID int64) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

func cloneSignals(in []trend.RawSignal) []trend.RawSignal {
	if in == nil {
		return []trend.RawSignal{}
	}
	return append([]trend.RawSignal(nil), in...)
}
