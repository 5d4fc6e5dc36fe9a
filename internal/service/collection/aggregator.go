// internal/service/collection/aggregator.go

package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
	"trendscope/internal/metrics"
)

// Validation bounds for raw signals
const (
	MinContentLength = 10
	MaxContentLength = 1000
	MaxMentions      = 10000000
)

// ErrUnsupportedPlatform is returned by CollectSingle for unknown platforms
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ErrSourceDisabled is returned by CollectSingle for a disabled source
var ErrSourceDisabled = errors.New("source disabled")

var platformAliases = map[string]string{
	"x": source.PlatformTwitter,
}

// Collector defines an interface for a single platform scraper
type Collector interface {
	// Name returns the display name used in error messages
	Name() string

	// Platform returns the platform key
	Platform() string

	// Collect fetches raw signals from the platform
	Collect(ctx context.Context) ([]trend.RawSignal, error)
}

// SourceLookup resolves the stored source for a platform
type SourceLookup interface {
	SourceByPlatform(ctx context.Context, platform string) (*source.Source, error)
}

// Config contains configuration for the aggregator
type Config struct {
	MaxConcurrent int
	SourceTimeout time.Duration
}

// Result is the outcome of a collection pass
type Result struct {
	Success   bool              `json:"success"`
	Items     []trend.RawSignal `json:"data"`
	Errors    []string          `json:"errors"`
	Succeeded int               `json:"succeeded"`
	Timestamp time.Time         `json:"timestamp"`
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithSourceFilter skips collectors whose stored source is disabled
func WithSourceFilter(lookup SourceLookup) Option {
	return func(a *Aggregator) {
		a.sources = lookup
	}
}

// WithMetrics records collector outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// Aggregator runs every registered collector and merges their output
type Aggregator struct {
	collectors []Collector
	byPlatform map[string]Collector
	config     Config
	sources    SourceLookup
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewAggregator creates a new aggregator over collectors in registration order
func NewAggregator(collectors []Collector, config Config, logger logrus.FieldLogger, opts ...Option) *Aggregator {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 5
	}
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	a := &Aggregator{
		collectors: collectors,
		byPlatform: make(map[string]Collector, len(collectors)),
		config:     config,
		logger:     logger.WithField("component", "aggregator"),
		now:        time.Now,
	}
	for _, c := range collectors {
		a.byPlatform[c.Platform()] = c
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Platforms returns the registered platform keys in registration order
func (a *Aggregator) Platforms() []string {
	platforms := make([]string, 0, len(a.collectors))
	for _, c := range a.collectors {
		platforms = append(platforms, c.Platform())
	}
	return platforms
}

type outcome struct {
	items   []trend.RawSignal
	err     error
	skipped bool
}

// CollectAll invokes every collector. A collector failure is recorded in
// Errors and never stops the others.
func (a *Aggregator) CollectAll(ctx context.Context) Result {
	outcomes := make([]outcome, len(a.collectors))

	g := new(errgroup.Group)
	g.SetLimit(a.config.MaxConcurrent)

	for i, c := range a.collectors {
		i, c := i, c
		g.Go(func() error {
			outcomes[i] = a.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Items:     []trend.RawSignal{},
		Errors:    []string{},
		Timestamp: a.now(),
	}
	for i, c := range a.collectors {
		o := outcomes[i]
		switch {
		case o.skipped:
			continue
		case o.err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s scraping failed: %s", c.Name(), o.err.Error()))
		default:
			result.Succeeded++
			result.Items = append(result.Items, o.items...)
		}
	}
	result.Success = result.Succeeded > 0

	a.logger.WithFields(logrus.Fields{
		"items":     len(result.Items),
		"succeeded": result.Succeeded,
		"errors":    len(result.Errors),
	}).Info("Collection pass completed")

	return result
}

// CollectSingle invokes exactly one collector. Aliases such as "x" resolve
// to their platform key.
func (a *Aggregator) CollectSingle(ctx context.Context, platform string) ([]trend.RawSignal, error) {
	key := strings.ToLower(strings.TrimSpace(platform))
	if alias, ok := platformAliases[key]; ok {
		key = alias
	}

	c, ok := a.byPlatform[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	o := a.run(ctx, c)
	if o.skipped {
		return nil, fmt.Errorf("%w: %s", ErrSourceDisabled, key)
	}
	if o.err != nil {
		return nil, fmt.Errorf("%s scraping failed: %w", c.Name(), o.err)
	}
	return o.items, nil
}

// run invokes one collector under its own deadline and validates the output
func (a *Aggregator) run(ctx context.Context, c Collector) (o outcome) {
	logger := a.logger.WithField("platform", c.Platform())

	if a.disabled(ctx, c.Platform()) {
		logger.Info("Source disabled, skipping")
		a.metrics.CollectorRun(c.Platform(), "skipped")
		return outcome{skipped: true}
	}

	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: fmt.Errorf("panic: %v", r)}
		}
		if o.err != nil {
			logger.WithError(o.err).Error("Collector failed")
			a.metrics.CollectorRun(c.Platform(), "failure")
			return
		}
		a.metrics.CollectorRun(c.Platform(), "success")
		a.metrics.ItemsCollected(c.Platform(), len(o.items))
	}()

	cctx, cancel := context.WithTimeout(ctx, a.config.SourceTimeout)
	defer cancel()

	items, err := c.Collect(cctx)
	if err != nil {
		return outcome{err: err}
	}

	valid := Validate(items)
	logger.WithFields(logrus.Fields{
		"collected": len(items),
		"valid":     len(valid),
	}).Debug("Collector finished")
	return outcome{items: valid}
}

// disabled reports whether the stored source is switched off.
// Lookup failures leave the collector enabled.
func (a *Aggregator) disabled(ctx context.Context, platform string) bool {
	if a.sources == nil {
		return false
	}
	src, err := a.sources.SourceByPlatform(ctx, platform)
	if err != nil || src == nil {
		return false
	}
	return !src.Enabled
}

// Validate keeps items with a platform, 10 to 1000 characters of content,
// and a mention count between 0 and 10,000,000.
func Validate(items []trend.RawSignal) []trend.RawSignal {
	valid := make([]trend.RawSignal, 0, len(items))
	for _, item := range items {
		if item.Platform == "" {
			continue
		}
		n := utf8.RuneCountInString(item.Content)
		if n < MinContentLength || n > MaxContentLength {
			continue
		}
		if item.Mentions < 0 || item.Mentions > MaxMentions {
			continue
		}
		valid = append(valid, item)
	}
	return valid
}
