package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/adapter/storage"
	"trendscope/internal/config"
	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
	"trendscope/internal/metrics"
	"trendscope/internal/service/collection"
	"trendscope/internal/service/reporting"
	"trendscope/internal/service/scheduler"
)

type stubCollector struct {
	all    collection.Result
	single []trend.RawSignal
	err    error
}

func (c stubCollector) CollectAll(ctx context.Context) collection.Result { return c.all }

func (c stubCollector) CollectSingle(ctx context.Context, platform string) ([]trend.RawSignal, error) {
	return c.single, c.err
}

type stubJobs struct {
	ran    bool
	err    error
	status scheduler.Status
	onRun  func(ctx context.Context)
}

func (j stubJobs) RunCollection(ctx context.Context) (bool, error) { return j.run(ctx) }
func (j stubJobs) RunReport(ctx context.Context) (bool, error)     { return j.run(ctx) }
func (j stubJobs) Status() scheduler.Status                         { return j.status }

func (j stubJobs) run(ctx context.Context) (bool, error) {
	if j.onRun != nil {
		j.onRun(ctx)
	}
	return j.ran, j.err
}

type stubSender struct {
	err error
	got string
}

func (s *stubSender) SendTest(ctx context.Context, email string) error {
	s.got = email
	if strings.TrimSpace(email) == "" {
		return reporting.ErrNoRecipient
	}
	return s.err
}

type fixture struct {
	store  *storage.MemoryStore
	sender *stubSender
	router http.Handler
}

func newFixture(t *testing.T, collector stubCollector, jobs stubJobs) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, storage.Seed(context.Background(), store))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	reg := prometheus.NewRegistry()
	metrics.New(reg).GuardSkipped(metrics.JobReport)

	sender := &stubSender{}
	srv := NewServer(config.ServerConfig{CorsOrigins: []string{"*"}}, Dependencies{
		Store:     store,
		Collector: collector,
		Jobs:      jobs,
		Cadences:  scheduler.New(store, nil, nil, logger),
		Reports:   sender,
		Gatherer:  reg,
	}, logger)

	return &fixture{store: store, sender: sender, router: srv.Handler()}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestTrends(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})
	created, err := f.store.CreateTrend(context.Background(), trend.Trend{Title: "Barrel jeans", Confidence: 90})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/trends?hours=24", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trends []trend.Trend
	decode(t, rec, &trends)
	require.Len(t, trends, 1)
	assert.Equal(t, "Barrel jeans", trends[0].Title)

	rec = f.do(http.MethodGet, "/api/trends/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/trends/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/trends/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/trends?hours=-2", "").Code)
}

func TestSuggestionsByTrend(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})
	ctx := context.Background()
	id := int64(7)
	_, err := f.store.CreateSuggestion(ctx, trend.Suggestion{Title: "linked", TrendID: &id})
	require.NoError(t, err)
	_, err = f.store.CreateSuggestion(ctx, trend.Suggestion{Title: "other"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/suggestions?trendId=7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var suggestions []trend.Suggestion
	decode(t, rec, &suggestions)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "linked", suggestions[0].Title)
}

func TestReportsEmpty(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	rec := f.do(http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateSourceStatus(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})
	ctx := context.Background()
	src, err := f.store.SourceByPlatform(ctx, source.PlatformReddit)
	require.NoError(t, err)

	path := "/api/sources/" + itoa(src.ID) + "/status"
	rec := f.do(http.MethodPut, path, `{"status":"error","errorMessage":"blocked"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	src, err = f.store.SourceByPlatform(ctx, source.PlatformReddit)
	require.NoError(t, err)
	assert.Equal(t, source.StatusError, src.Status)
	require.NotNil(t, src.ErrorMessage)
	assert.Equal(t, "blocked", *src.ErrorMessage)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, path, `{"status":"sleepy"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/sources/999/status", `{"status":"active"}`).Code)
}

func TestSettings(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	rec := f.do(http.MethodGet, "/api/settings/"+setting.KeySchedulerEnabled, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/settings/nope", "").Code)

	rec = f.do(http.MethodPut, "/api/settings/"+setting.KeyScrapingInterval, `{"value":"not a cron"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/settings/"+setting.KeyScrapingInterval, `{"value":"*/30 * * * *"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st, err := f.store.GetSetting(context.Background(), setting.KeyScrapingInterval)
	require.NoError(t, err)
	assert.Equal(t, "*/30 * * * *", st.String(""))

	rec = f.do(http.MethodPut, "/api/settings/"+setting.KeyEmailRecipients, `{"value":[{"email":"a@example.com"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScrape(t *testing.T) {
	signals := []trend.RawSignal{{Platform: source.PlatformReddit, Content: "barrel jeans are back", Mentions: 3}}
	f := newFixture(t, stubCollector{
		all:    collection.Result{Success: true, Items: signals, Errors: []string{}, Succeeded: 5},
		single: signals,
	}, stubJobs{})

	rec := f.do(http.MethodPost, "/api/scrape", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all collection.Result
	decode(t, rec, &all)
	assert.Equal(t, 5, all.Succeeded)

	rec = f.do(http.MethodPost, "/api/scrape", `{"platform":"reddit"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var single collection.Result
	decode(t, rec, &single)
	assert.True(t, single.Success)
	assert.Len(t, single.Items, 1)
}

func TestScrape_UnsupportedPlatform(t *testing.T) {
	f := newFixture(t, stubCollector{err: fmt.Errorf("%w: myspace", collection.ErrUnsupportedPlatform)}, stubJobs{})

	rec := f.do(http.MethodPost, "/api/scrape", `{"platform":"myspace"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrape_DisabledSource(t *testing.T) {
	f := newFixture(t, stubCollector{err: fmt.Errorf("%w: tiktok", collection.ErrSourceDisabled)}, stubJobs{})

	rec := f.do(http.MethodPost, "/api/scrape", `{"platform":"tiktok"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "source disabled: tiktok", body["error"])
}

func TestGuardedRunsOutliveClientDisconnect(t *testing.T) {
	for _, path := range []string{"/api/analyze", "/api/reports/generate"} {
		t.Run(path, func(t *testing.T) {
			var runErr error
			f := newFixture(t, stubCollector{}, stubJobs{ran: true, onRun: func(ctx context.Context) {
				runErr = ctx.Err()
			}})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodPost, path, nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.NoError(t, runErr)
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		jobs   stubJobs
		status int
		body   string
	}{
		{"ran", stubJobs{ran: true}, http.StatusOK, `{"message":"Trend analysis completed successfully"}`},
		{"skipped", stubJobs{ran: false}, http.StatusAccepted, `{"skipped":true,"message":"Trend analysis already running"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(t, stubCollector{}, tt.jobs).do(http.MethodPost, "/api/analyze", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}

	rec := newFixture(t, stubCollector{}, stubJobs{ran: true, err: errors.New("Scraping failed: Reddit: boom")}).
		do(http.MethodPost, "/api/analyze", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Trend analysis failed", body["error"])
	assert.Contains(t, body["details"], "Reddit: boom")
}

func TestGenerateReport_Skipped(t *testing.T) {
	rec := newFixture(t, stubCollector{}, stubJobs{}).do(http.MethodPost, "/api/reports/generate", "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped":true`)
}

func TestSendTestEmail(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/email/test", `{}`).Code)

	rec := f.do(http.MethodPost, "/api/email/test", `{"email":"ops@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@example.com", f.sender.got)

	f.sender.err = errors.New("smtp down")
	assert.Equal(t, http.StatusInternalServerError, f.do(http.MethodPost, "/api/email/test", `{"email":"ops@example.com"}`).Code)
}

func TestSchedulerStatus(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{status: scheduler.Status{Enabled: true, CollectionRunning: true}})

	rec := f.do(http.MethodGet, "/api/scheduler/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, true, body["isScrapingRunning"])
	assert.Equal(t, false, body["isReportRunning"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	rec := f.do(http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Trends    []trend.Trend     `json:"trends"`
		Sources   []source.Source   `json:"sources"`
		Analytics storage.Analytics `json:"analytics"`
	}
	decode(t, rec, &body)
	assert.Empty(t, body.Trends)
	assert.Len(t, body.Sources, len(source.Defaults()))
	assert.Equal(t, 5, body.Analytics.ActiveSourcesCount)
}

func TestEventStream_WithoutNATS(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/ws/events", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, stubCollector{}, stubJobs{})

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trendscope_guard_skips_total")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
