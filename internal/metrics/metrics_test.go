package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CollectorRun("reddit", "success")
	m.CollectorRun("reddit", "failure")
	m.ItemsCollected("reddit", 3)
	m.CycleFinished(JobCollection, time.Now(), errors.New("boom"))
	m.GuardSkipped(JobReport)
	m.SetRunning(JobReport, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.collectorRuns.WithLabelValues("reddit", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsCollected.WithLabelValues("reddit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(JobCollection, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardSkips.WithLabelValues(JobReport)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsRunning.WithLabelValues(JobReport)))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CollectorRun("reddit", "success")
		m.ItemsCollected("reddit", 1)
		m.CycleFinished(JobReport, time.Now(), nil)
		m.GuardSkipped(JobCollection)
		m.SetRunning(JobCollection, true)
		m.TrendPersisted()
		m.EmailsSent(2)
	})
}
