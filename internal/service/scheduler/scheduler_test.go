package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/adapter/storage"
	"trendscope/internal/domain/setting"
)

// blockingJob runs until release is closed
type blockingJob struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func newBlockingJob() *blockingJob {
	return &blockingJob{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (j *blockingJob) run(ctx context.Context) error {
	j.calls.Add(1)
	j.started <- struct{}{}
	<-j.release
	return j.err
}

func (j *blockingJob) RunCycle(ctx context.Context) error       { return j.run(ctx) }
func (j *blockingJob) RunReportCycle(ctx context.Context) error { return j.run(ctx) }

type countingJob struct {
	calls atomic.Int32
	err   error
}

func (j *countingJob) RunCycle(ctx context.Context) error {
	j.calls.Add(1)
	return j.err
}

func (j *countingJob) RunReportCycle(ctx context.Context) error {
	j.calls.Add(1)
	return j.err
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func settingsStore(t *testing.T, overrides map[string]interface{}) *storage.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemoryStore()
	require.NoError(t, storage.Seed(ctx, s))
	for key, v := range overrides {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		_, err = s.UpdateSetting(ctx, key, raw)
		require.NoError(t, err)
	}
	return s
}

func TestRunCollection_SkipsWhileRunning(t *testing.T) {
	ctx := context.Background()
	collection := newBlockingJob()
	s := New(settingsStore(t, nil), collection, &countingJob{}, quietLogger())

	done := make(chan bool)
	go func() {
		ran, err := s.RunCollection(ctx)
		assert.NoError(t, err)
		done <- ran
	}()
	<-collection.started

	ran, err := s.RunCollection(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.True(t, s.Status().CollectionRunning)

	close(collection.release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), collection.calls.Load())
	assert.False(t, s.Status().CollectionRunning)

	// guard is clear again
	ran, err = s.RunCollection(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(2), collection.calls.Load())
}

func TestJobsDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	collection := newBlockingJob()
	report := &countingJob{}
	s := New(settingsStore(t, nil), collection, report, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunCollection(ctx)
	}()
	<-collection.started

	ran, err := s.RunReport(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), report.calls.Load())

	close(collection.release)
	<-done
}

func TestGuardClearsOnError(t *testing.T) {
	ctx := context.Background()
	report := &countingJob{err: errors.New("smtp down")}
	s := New(settingsStore(t, nil), &countingJob{}, report, quietLogger())

	for i := 0; i < 2; i++ {
		ran, err := s.RunReport(ctx)
		assert.True(t, ran)
		assert.EqualError(t, err, "smtp down")
	}
	assert.Equal(t, int32(2), report.calls.Load())
	assert.False(t, s.Status().ReportRunning)
}

func TestStart_Disabled(t *testing.T) {
	store := settingsStore(t, map[string]interface{}{setting.KeySchedulerEnabled: false})
	s := New(store, &countingJob{}, &countingJob{}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	st := s.Status()
	assert.False(t, st.Enabled)
	assert.Empty(t, st.NextCollection)
	assert.Empty(t, st.NextReport)
	assert.Equal(t, setting.DefaultScrapingInterval, st.CollectionSchedule)
}

func TestStart_InvalidCadence(t *testing.T) {
	store := settingsStore(t, map[string]interface{}{setting.KeyScrapingInterval: "every other tuesday"})
	s := New(store, &countingJob{}, &countingJob{}, quietLogger())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every other tuesday")
	assert.Empty(t, s.Status().NextCollection)
}

func TestStart_Twice(t *testing.T) {
	s := New(settingsStore(t, nil), &countingJob{}, &countingJob{}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestStart_DefaultsReportNextRuns(t *testing.T) {
	s := New(settingsStore(t, nil), &countingJob{}, &countingJob{}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		st := s.Status()
		return st.NextCollection != "" && st.NextReport != ""
	}, time.Second, 10*time.Millisecond)

	st := s.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, setting.DefaultDailyReportTime, st.ReportSchedule)
}

func TestTimerFiresThroughGuard(t *testing.T) {
	collection := &countingJob{err: errors.New("swallowed")}
	store := settingsStore(t, map[string]interface{}{setting.KeyScrapingInterval: "@every 1s"})
	s := New(store, collection, &countingJob{}, quietLogger())

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return collection.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	after := collection.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, collection.calls.Load())
}

func TestValidateCadence(t *testing.T) {
	s := New(settingsStore(t, nil), &countingJob{}, &countingJob{}, quietLogger())

	assert.NoError(t, s.ValidateCadence("*/5 * * * *"))
	assert.NoError(t, s.ValidateCadence("@daily"))
	assert.Error(t, s.ValidateCadence("* * * * * *"))
}
