// internal/service/analysis/orchestrator.go

package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
	"trendscope/internal/metrics"
	"trendscope/internal/service/collection"
)

// MaxTrendSources caps the raw signals attached to a trend
const MaxTrendSources = 5

const statusTimeout = 10 * time.Second

// Stage is the position of the orchestrator in a cycle
type Stage string

const (
	StageIdle       Stage = "idle"
	StageCollecting Stage = "collecting"
	StageReasoning  Stage = "reasoning"
	StagePersisting Stage = "persisting"
	StageError      Stage = "error"
)

// Aggregator collects raw signals from every source
type Aggregator interface {
	CollectAll(ctx context.Context) collection.Result
}

// Store defines the persistence the analysis cycle writes to
type Store interface {
	CreateTrend(ctx context.Context, t trend.Trend) (trend.Trend, error)
	CreateSuggestion(ctx context.Context, s trend.Suggestion) (trend.Suggestion, error)
	UpdateSourceStatus(ctx context.Context, platform string, status source.Status, message string) error
}

// Publisher announces persisted trends
type Publisher interface {
	PublishTrend(ctx context.Context, runID string, t trend.Trend) error
}

// Config contains configuration for the orchestrator
type Config struct {
	// StageTimeout bounds each external stage: collection, reasoning, persistence
	StageTimeout time.Duration
	// Platforms are the real sources marked active after a successful cycle
	Platforms []string
}

// CycleResult describes a completed analysis cycle
type CycleResult struct {
	RunID       string             `json:"runId"`
	Collected   int                `json:"collected"`
	Accepted    int                `json:"accepted"`
	Trends      []trend.Trend      `json:"trends"`
	Suggestions []trend.Suggestion `json:"suggestions"`
	Errors      []string           `json:"errors"`
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPublisher emits a trend.detected event per persisted trend
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithMetrics records cycle outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator runs collect, reason and persist as one cycle
type Orchestrator struct {
	aggregator Aggregator
	reasoner   trend.Reasoner
	store      Store
	publisher  Publisher
	metrics    *metrics.Metrics
	config     Config
	logger     logrus.FieldLogger

	mu    sync.RWMutex
	stage Stage
}

// NewOrchestrator creates a new analysis orchestrator
func NewOrchestrator(
	aggregator Aggregator,
	reasoner trend.Reasoner,
	store Store,
	config Config,
	logger logrus.FieldLogger,
	opts ...Option,
) *Orchestrator {
	if config.StageTimeout <= 0 {
		config.StageTimeout = 5 * time.Minute
	}
	if config.Platforms == nil {
		config.Platforms = source.KnownPlatforms()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	o := &Orchestrator{
		aggregator: aggregator,
		reasoner:   reasoner,
		store:      store,
		config:     config,
		logger:     logger.WithField("component", "analysis"),
		stage:      StageIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage returns the current cycle stage
func (o *Orchestrator) Stage() Stage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stage
}

func (o *Orchestrator) setStage(s Stage) {
	o.mu.Lock()
	o.stage = s
	o.mu.Unlock()
}

// RunCycle runs one analysis cycle
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	_, err := o.RunCycleWithResult(ctx)
	return err
}

// RunCycleWithResult runs one analysis cycle and reports what it produced.
// On failure the system source records the error and nothing further is written.
func (o *Orchestrator) RunCycleWithResult(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	result := &CycleResult{
		RunID:       uuid.New().String(),
		Trends:      []trend.Trend{},
		Suggestions: []trend.Suggestion{},
		Errors:      []string{},
	}
	logger := o.logger.WithField("run_id", result.RunID)

	err := o.run(ctx, result, logger)
	o.metrics.CycleFinished(metrics.JobCollection, start, err)
	if err != nil {
		o.setStage(StageError)
		logger.WithError(err).Error("Analysis cycle failed")
		o.recordFailure(ctx, err, logger)
		o.setStage(StageIdle)
		return result, err
	}

	o.markActive(ctx, logger)
	o.setStage(StageIdle)

	logger.WithFields(logrus.Fields{
		"trends":      len(result.Trends),
		"suggestions": len(result.Suggestions),
		"duration":    time.Since(start).String(),
	}).Info("Analysis cycle completed")
	return result, nil
}

// recordFailure marks the system source errored even when ctx is already done
func (o *Orchestrator) recordFailure(ctx context.Context, cause error, logger logrus.FieldLogger) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()

	if err := o.store.UpdateSourceStatus(sctx, source.SystemPlatform, source.StatusError, cause.Error()); err != nil {
		logger.WithError(err).Error("Error recording system source failure")
	}
}

func (o *Orchestrator) run(ctx context.Context, result *CycleResult, logger logrus.FieldLogger) error {
	if err := o.store.UpdateSourceStatus(ctx, source.SystemPlatform, source.StatusRunning, "Analyzing trends..."); err != nil {
		return fmt.Errorf("error marking system source running: %w", err)
	}

	// Collecting
	o.setStage(StageCollecting)
	items, err := o.collect(ctx, result)
	if err != nil {
		return err
	}
	logger.WithField("items", len(items)).Info("Collected raw signals")

	// Reasoning
	o.setStage(StageReasoning)
	accepted, err := o.extract(ctx, items)
	if err != nil {
		return err
	}
	result.Accepted = len(accepted)
	logger.WithField("accepted", len(accepted)).Info("Extracted trends")

	// Persisting trends before their suggestions
	o.setStage(StagePersisting)
	var firstTrendID *int64
	for _, c := range accepted {
		t, err := o.persistTrend(ctx, c, items)
		if err != nil {
			return err
		}
		if firstTrendID == nil {
			id := t.ID
			firstTrendID = &id
		}
		result.Trends = append(result.Trends, t)
		o.metrics.TrendPersisted()

		if o.publisher != nil {
			if err := o.publisher.PublishTrend(ctx, result.RunID, t); err != nil {
				logger.WithError(err).WithField("trend_id", t.ID).Warn("Error publishing trend event")
			}
		}
	}

	o.setStage(StageReasoning)
	suggestions, err := o.suggest(ctx, accepted)
	if err != nil {
		return err
	}

	o.setStage(StagePersisting)
	for _, sc := range suggestions {
		s, err := o.persistSuggestion(ctx, sc, firstTrendID)
		if err != nil {
			return err
		}
		result.Suggestions = append(result.Suggestions, s)
	}

	return nil
}

func (o *Orchestrator) collect(ctx context.Context, result *CycleResult) ([]trend.RawSignal, error) {
	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	collected := o.aggregator.CollectAll(sctx)
	result.Collected = len(collected.Items)
	result.Errors = append(result.Errors, collected.Errors...)

	if !collected.Success || len(collected.Items) == 0 {
		return nil, fmt.Errorf("Scraping failed: %s", strings.Join(collected.Errors, ", "))
	}
	return collected.Items, nil
}

func (o *Orchestrator) extract(ctx context.Context, items []trend.RawSignal) ([]trend.Candidate, error) {
	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	candidates, err := o.reasoner.ExtractTrends(sctx, items)
	if err != nil {
		return nil, fmt.Errorf("trend extraction failed: %w", err)
	}

	accepted := make([]trend.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Accepted() {
			accepted = append(accepted, c)
		}
	}
	return accepted, nil
}

func (o *Orchestrator) suggest(ctx context.Context, accepted []trend.Candidate) ([]trend.SuggestionCandidate, error) {
	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	suggestions, err := o.reasoner.GenerateSuggestions(sctx, accepted)
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}
	return suggestions, nil
}

func (o *Orchestrator) persistTrend(ctx context.Context, c trend.Candidate, items []trend.RawSignal) (trend.Trend, error) {
	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	t, err := o.store.CreateTrend(sctx, trend.Trend{
		Title:            c.Title,
		Description:      c.Description,
		Category:         c.Category,
		Sources:          RelatedSignals(c, items),
		Confidence:       c.Confidence,
		TrendScore:       c.TrendScore,
		ChangePercentage: c.ChangePercentage,
		Impact:           c.Impact,
	})
	if err != nil {
		return trend.Trend{}, fmt.Errorf("error saving trend %q: %w", c.Title, err)
	}
	return t, nil
}

func (o *Orchestrator) persistSuggestion(ctx context.Context, sc trend.SuggestionCandidate, trendID *int64) (trend.Suggestion, error) {
	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	s, err := o.store.CreateSuggestion(sctx, trend.Suggestion{
		TrendID:     trendID,
		Title:       sc.Title,
		Description: sc.Description,
		Impact:      sc.Impact,
		Effort:      sc.Effort,
		Type:        sc.Type,
	})
	if err != nil {
		return trend.Suggestion{}, fmt.Errorf("error saving suggestion %q: %w", sc.Title, err)
	}
	return s, nil
}

// markActive flags every real platform and the system source healthy.
// Failures here are logged; the cycle has already succeeded.
func (o *Orchestrator) markActive(ctx context.Context, logger logrus.FieldLogger) {
	for _, platform := range o.config.Platforms {
		if err := o.store.UpdateSourceStatus(ctx, platform, source.StatusActive, ""); err != nil {
			logger.WithError(err).WithField("platform", platform).Warn("Error updating source status")
		}
	}
	if err := o.store.UpdateSourceStatus(ctx, source.SystemPlatform, source.StatusActive, ""); err != nil {
		logger.WithError(err).Warn("Error updating system source status")
	}
}

// RelatedSignals picks up to MaxTrendSources items whose content contains
// the first word of the candidate title, case-insensitively.
func RelatedSignals(c trend.Candidate, items []trend.RawSignal) []trend.RawSignal {
	keyword := c.Keyword()
	related := make([]trend.RawSignal, 0, MaxTrendSources)
	for _, item := range items {
		if len(related) == MaxTrendSources {
			break
		}
		if strings.Contains(strings.ToLower(item.Content), keyword) {
			related = append(related, item)
		}
	}
	return related
}
