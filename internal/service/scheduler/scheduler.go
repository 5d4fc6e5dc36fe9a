// internal/service/scheduler/scheduler.go

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/setting"
	"trendscope/internal/metrics"
)

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("scheduler already started")

// SettingStore reads the cadence settings
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (*setting.Setting, error)
}

// CollectionJob runs one collect-reason-persist cycle
type CollectionJob interface {
	RunCycle(ctx context.Context) error
}

// ReportJob runs one digest cycle
type ReportJob interface {
	RunReportCycle(ctx context.Context) error
}

// Status describes the scheduler for the dashboard
type Status struct {
	Enabled            bool   `json:"enabled"`
	NextCollection     string `json:"nextScraping"`
	NextReport         string `json:"nextReport"`
	CollectionRunning  bool   `json:"isScrapingRunning"`
	ReportRunning      bool   `json:"isReportRunning"`
	CollectionSchedule string `json:"scrapingSchedule"`
	ReportSchedule     string `json:"reportSchedule"`
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMetrics records guard skips and running gauges
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler fires the collection and report jobs on their cron cadences.
// Each job has its own guard, so a job never overlaps itself while the two
// jobs may overlap each other.
type Scheduler struct {
	settings   SettingStore
	collection CollectionJob
	report     ReportJob
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	parser     cron.Parser

	collectionRunning atomic.Bool
	reportRunning     atomic.Bool

	mu                 sync.Mutex
	cron               *cron.Cron
	ctx                context.Context
	enabled            bool
	collectionEntry    cron.EntryID
	reportEntry        cron.EntryID
	collectionSchedule string
	reportSchedule     string
	now                func() time.Time
}

// New creates a new scheduler
func New(settings SettingStore, collection CollectionJob, report ReportJob, logger logrus.FieldLogger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Scheduler{
		settings:   settings,
		collection: collection,
		report:     report,
		logger:     logger.WithField("component", "scheduler"),
		parser:     cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCadence reports whether expr is a cron expression the scheduler accepts
func (s *Scheduler) ValidateCadence(expr string) error {
	if _, err := s.parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start reads the cadence settings once and registers both triggers.
// Setting changes take effect on the next Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	collectionSchedule := s.readString(ctx, setting.KeyScrapingInterval, setting.DefaultScrapingInterval)
	reportSchedule := s.readString(ctx, setting.KeyDailyReportTime, setting.DefaultDailyReportTime)
	enabled := s.readBool(ctx, setting.KeySchedulerEnabled, true)

	s.collectionSchedule = collectionSchedule
	s.reportSchedule = reportSchedule
	s.enabled = enabled

	if !enabled {
		s.logger.Info("Scheduler disabled, no triggers registered")
		return nil
	}

	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithChain(cron.Recover(cron.PrintfLogger(s.logger))),
	)

	collectionEntry, err := c.AddFunc(collectionSchedule, s.collectionTick)
	if err != nil {
		return fmt.Errorf("error scheduling collection %q: %w", collectionSchedule, err)
	}
	reportEntry, err := c.AddFunc(reportSchedule, s.reportTick)
	if err != nil {
		return fmt.Errorf("error scheduling report %q: %w", reportSchedule, err)
	}

	s.ctx = ctx
	s.cron = c
	s.collectionEntry = collectionEntry
	s.reportEntry = reportEntry
	c.Start()

	s.logger.WithFields(logrus.Fields{
		"collection_schedule": collectionSchedule,
		"report_schedule":     reportSchedule,
	}).Info("Scheduler started")
	return nil
}

// Stop removes both triggers. Runs already in flight are left to finish;
// Stop waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}

	done := c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stopped with jobs still running")
	}
	s.logger.Info("Scheduler stopped")
}

// RunCollection runs the collection job unless it is already running.
// A skipped run returns false and a nil error.
func (s *Scheduler) RunCollection(ctx context.Context) (bool, error) {
	return s.guarded(ctx, metrics.JobCollection, &s.collectionRunning, s.collection.RunCycle)
}

// RunReport runs the report job unless it is already running.
// A skipped run returns false and a nil error.
func (s *Scheduler) RunReport(ctx context.Context) (bool, error) {
	return s.guarded(ctx, metrics.JobReport, &s.reportRunning, s.report.RunReportCycle)
}

func (s *Scheduler) guarded(ctx context.Context, job string, running *atomic.Bool, run func(context.Context) error) (bool, error) {
	logger := s.logger.WithField("job", job)

	if !running.CompareAndSwap(false, true) {
		logger.Info("Job already running, skipping")
		s.metrics.GuardSkipped(job)
		return false, nil
	}
	s.metrics.SetRunning(job, true)
	defer func() {
		running.Store(false)
		s.metrics.SetRunning(job, false)
	}()

	logger.Info("Job started")
	if err := run(ctx); err != nil {
		return true, err
	}
	logger.Info("Job finished")
	return true, nil
}

func (s *Scheduler) collectionTick() {
	if _, err := s.RunCollection(s.baseContext()); err != nil {
		s.logger.WithError(err).WithField("job", metrics.JobCollection).Error("Scheduled job failed")
	}
}

func (s *Scheduler) reportTick() {
	if _, err := s.RunReport(s.baseContext()); err != nil {
		s.logger.WithError(err).WithField("job", metrics.JobReport).Error("Scheduled job failed")
	}
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Status returns the current scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Enabled:            s.enabled,
		CollectionRunning:  s.collectionRunning.Load(),
		ReportRunning:      s.reportRunning.Load(),
		CollectionSchedule: s.collectionSchedule,
		ReportSchedule:     s.reportSchedule,
	}
	if s.cron != nil {
		now := s.now()
		st.NextCollection = describeNext(s.cron.Entry(s.collectionEntry).Next, now)
		st.NextReport = describeNext(s.cron.Entry(s.reportEntry).Next, now)
	}
	return st
}

func describeNext(next, now time.Time) string {
	if next.IsZero() {
		return ""
	}
	in := next.Sub(now).Round(time.Minute)
	if in < time.Minute {
		return fmt.Sprintf("%s (in less than a minute)", next.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s (in %s)", next.UTC().Format(time.RFC3339), in)
}

func (s *Scheduler) readString(ctx context.Context, key, def string) string {
	st, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read setting, using default")
		return def
	}
	return st.String(def)
}

func (s *Scheduler) readBool(ctx context.Context, key string, def bool) bool {
	st, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read setting, using default")
		return def
	}
	return st.Bool(def)
}
