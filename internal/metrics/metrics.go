// internal/metrics/metrics.go

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendscope"

// Job labels
const (
	JobCollection = "collection"
	JobReport     = "report"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	collectorRuns   *prometheus.CounterVec
	itemsCollected  *prometheus.CounterVec
	cycles          *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	guardSkips      *prometheus.CounterVec
	jobsRunning     *prometheus.GaugeVec
	trendsPersisted prometheus.Counter
	emailsSent      prometheus.Counter
}

// New registers the pipeline metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		collectorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_runs_total",
				Help:      "Collector invocations by outcome",
			},
			[]string{"platform", "result"}, // "success", "failure", "skipped"
		),
		itemsCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_collected_total",
				Help:      "Raw signals that passed validation",
			},
			[]string{"platform"},
		),
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Pipeline cycles by job and outcome",
			},
			[]string{"job", "result"},
		),
		cycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of pipeline cycles in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17m
			},
			[]string{"job"},
		),
		guardSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_skips_total",
				Help:      "Triggers skipped because the job was already running",
			},
			[]string{"job"},
		),
		jobsRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_running",
				Help:      "1 while the job is executing",
			},
			[]string{"job"},
		),
		trendsPersisted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trends_persisted_total",
				Help:      "Trends written by the analysis cycle",
			},
		),
		emailsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Digest emails delivered",
			},
		),
	}
}

// CollectorRun records one collector outcome
func (m *Metrics) CollectorRun(platform, result string) {
	if m == nil {
		return
	}
	m.collectorRuns.WithLabelValues(platform, result).Inc()
}

// ItemsCollected adds validated items for a platform
func (m *Metrics) ItemsCollected(platform string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsCollected.WithLabelValues(platform).Add(float64(n))
}

// CycleFinished records the outcome and duration of a cycle
func (m *Metrics) CycleFinished(job string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.cycles.WithLabelValues(job, result).Inc()
	m.cycleDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// GuardSkipped records a trigger dropped by a running guard
func (m *Metrics) GuardSkipped(job string) {
	if m == nil {
		return
	}
	m.guardSkips.WithLabelValues(job).Inc()
}

// SetRunning flips the running gauge for a job
func (m *Metrics) SetRunning(job string, running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.jobsRunning.WithLabelValues(job).Set(v)
}

// TrendPersisted counts a stored trend
func (m *Metrics) TrendPersisted() {
	if m == nil {
		return
	}
	m.trendsPersisted.Inc()
}

// EmailsSent adds delivered digest messages
func (m *Metrics) EmailsSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.emailsSent.Add(float64(n))
}
