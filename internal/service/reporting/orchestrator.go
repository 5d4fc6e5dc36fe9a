// internal/service/reporting/orchestrator.go

package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trendscope/internal/adapter/mailer"
	"trendscope/internal/domain/report"
	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/trend"
	"trendscope/internal/metrics"
)

// ErrNoRecipient is returned by SendTest without an address
var ErrNoRecipient = errors.New("email address required")

const recordTimeout = 10 * time.Second

// Store defines the persistence the report cycle reads and writes
type Store interface {
	RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error)
	RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error)
	GetSetting(ctx context.Context, key string) (*setting.Setting, error)
	CreateReport(ctx context.Context, r report.Report) (report.Report, error)
}

// Mailer delivers a rendered message to every recipient, all or nothing
type Mailer interface {
	Send(ctx context.Context, recipients []setting.Recipient, msg mailer.Message) error
}

// Publisher announces recorded reports
type Publisher interface {
	PublishReport(ctx context.Context, runID string, r report.Report) error
}

// Config contains configuration for the report orchestrator
type Config struct {
	Lookback     time.Duration
	StageTimeout time.Duration
	DashboardURL string
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPublisher emits report.sent and report.failed events
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

// Orchestrator builds, mails and records the daily digest
type Orchestrator struct {
	store     Store
	reasoner  trend.Reasoner
	mailer    Mailer
	publisher Publisher
	metrics   *metrics.Metrics
	config    Config
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewOrchestrator creates a new report orchestrator
func NewOrchestrator(
	store Store,
	reasoner trend.Reasoner,
	mailer Mailer,
	config Config,
	logger logrus.FieldLogger,
	opts ...Option,
) *Orchestrator {
	if config.Lookback <= 0 {
		config.Lookback = 24 * time.Hour
	}
	if config.StageTimeout <= 0 {
		config.StageTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	o := &Orchestrator{
		store:    store,
		reasoner: reasoner,
		mailer:   mailer,
		config:   config,
		logger:   logger.WithField("component", "reporting"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// digest is the material gathered for one report
type digest struct {
	trends      []trend.Trend
	suggestions []trend.Suggestion
	summary     string
}

// RunReportCycle builds and sends the digest. No recent trends or no
// recipients is a no-op; any later failure is recorded as a failed report.
func (o *Orchestrator) RunReportCycle(ctx context.Context) error {
	start := time.Now()
	runID := uuid.New().String()
	logger := o.logger.WithField("run_id", runID)

	sent, err := o.run(ctx, logger)
	if err == nil && sent != nil {
		if err = o.record(ctx, runID, *sent); err == nil {
			o.metrics.EmailsSent(sent.EmailsSent)
			logger.WithField("emails_sent", sent.EmailsSent).Info("Daily report sent")
		}
	}
	if err != nil {
		logger.WithError(err).Error("Daily report generation failed")
		o.recordFailure(ctx, runID, err, logger)
	}

	o.metrics.CycleFinished(metrics.JobReport, start, err)
	return err
}

// run returns the report to record, or nil for a no-op
func (o *Orchestrator) run(ctx context.Context, logger logrus.FieldLogger) (*report.Report, error) {
	trends, err := o.store.RecentTrends(ctx, o.config.Lookback)
	if err != nil {
		return nil, fmt.Errorf("error reading recent trends: %w", err)
	}
	if len(trends) == 0 {
		logger.Info("No recent trends found, skipping report generation")
		return nil, nil
	}

	d, err := o.gather(ctx, trends)
	if err != nil {
		return nil, err
	}

	recipients := o.recipients(ctx, logger)
	if len(recipients) == 0 {
		logger.Info("No email recipients configured, skipping email send")
		return nil, nil
	}

	if err := o.send(ctx, d, recipients); err != nil {
		return nil, err
	}

	return &report.Report{
		TrendsCount:      len(d.trends),
		SuggestionsCount: len(d.suggestions),
		Status:           report.StatusSent,
		EmailsSent:       len(recipients),
		Content: report.Content{
			Summary:     d.summary,
			Trends:      head(d.trends, report.SnapshotLimit),
			Suggestions: head(d.suggestions, report.SnapshotLimit),
		},
	}, nil
}

// gather reads suggestions and asks the reasoner for a summary
func (o *Orchestrator) gather(ctx context.Context, trends []trend.Trend) (digest, error) {
	suggestions, err := o.store.RecentSuggestions(ctx, o.config.Lookback)
	if err != nil {
		return digest{}, fmt.Errorf("error reading recent suggestions: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	summary, err := o.reasoner.Summarize(sctx, head(trends, mailer.DigestItems), head(suggestions, mailer.DigestItems))
	if err != nil {
		return digest{}, fmt.Errorf("error generating summary: %w", err)
	}

	return digest{trends: trends, suggestions: suggestions, summary: summary}, nil
}

func (o *Orchestrator) send(ctx context.Context, d digest, recipients []setting.Recipient) error {
	msg, err := mailer.Render(mailer.Digest{
		Date:         o.now(),
		Summary:      d.summary,
		Trends:       d.trends,
		Suggestions:  d.suggestions,
		DashboardURL: o.config.DashboardURL,
	})
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	if err := o.mailer.Send(sctx, recipients, msg); err != nil {
		return fmt.Errorf("error sending report email: %w", err)
	}
	return nil
}

// recipients reads email_recipients fresh. Read failures count as no recipients.
func (o *Orchestrator) recipients(ctx context.Context, logger logrus.FieldLogger) []setting.Recipient {
	st, err := o.store.GetSetting(ctx, setting.KeyEmailRecipients)
	if err != nil {
		logger.WithError(err).Warn("Failed to get email recipients")
		return nil
	}
	recipients, err := st.Recipients()
	if err != nil {
		logger.WithError(err).Warn("Failed to decode email recipients")
		return nil
	}
	return recipients
}

func (o *Orchestrator) record(ctx context.Context, runID string, r report.Report) error {
	r.Date = o.now().UTC().Format(report.DateLayout)

	saved, err := o.store.CreateReport(ctx, r)
	if err != nil {
		return fmt.Errorf("error recording %s report: %w", r.Status, err)
	}

	if o.publisher != nil {
		if err := o.publisher.PublishReport(ctx, runID, saved); err != nil {
			o.logger.WithError(err).WithField("run_id", runID).Warn("Error publishing report event")
		}
	}
	return nil
}

// recordFailure writes the failed report on a context that outlives the
// cycle's cancellation
func (o *Orchestrator) recordFailure(ctx context.Context, runID string, cause error, logger logrus.FieldLogger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := o.record(rctx, runID, report.Report{
		Status:  report.StatusFailed,
		Content: report.Content{Error: cause.Error()},
	})
	if err != nil {
		logger.WithError(err).Error("Error recording failed report")
	}
}

// SendTest mails the current digest to one address without recording a report
func (o *Orchestrator) SendTest(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrNoRecipient
	}

	trends, err := o.store.RecentTrends(ctx, o.config.Lookback)
	if err != nil {
		return fmt.Errorf("error reading recent trends: %w", err)
	}

	d, err := o.gather(ctx, trends)
	if err != nil {
		return err
	}
	d.trends = head(d.trends, mailer.DigestItems)
	d.suggestions = head(d.suggestions, mailer.DigestItems)

	return o.send(ctx, d, []setting.Recipient{{Email: email}})
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
