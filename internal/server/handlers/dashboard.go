// internal/server/handlers/dashboard.go

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trendscope/internal/adapter/storage"
	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

const dashboardItems = 10

// DashboardStore reads the aggregates shown on the dashboard
type DashboardStore interface {
	RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error)
	RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error)
	ListSources(ctx context.Context) ([]source.Source, error)
	Analytics(ctx context.Context) (storage.Analytics, error)
}

// DashboardHandler serves health, analytics and the dashboard summary
type DashboardHandler struct {
	responder
	store   DashboardStore
	started time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(store DashboardStore, logger logrus.FieldLogger) *DashboardHandler {
	return &DashboardHandler{
		responder: newResponder(logger, "dashboard_handler"),
		store:     store,
		started:   time.Now(),
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// Health reports liveness and uptime in seconds
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
	})
}

// GetAnalytics returns store totals
func (h *DashboardHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Analytics(r.Context())
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get analytics", err)
		return
	}

	respondWithJSON(w, http.StatusOK, a)
}

type dashboardResponse struct {
	Trends      []trend.Trend      `json:"trends"`
	Suggestions []trend.Suggestion `json:"suggestions"`
	Sources     []source.Source    `json:"sources"`
	Analytics   storage.Analytics  `json:"analytics"`
}

// GetDashboard returns the last day's leading trends and suggestions with
// every source and the store totals
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var resp dashboardResponse

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		trends, err := h.store.RecentTrends(ctx, 24*time.Hour)
		resp.Trends = firstN(trends, dashboardItems)
		return err
	})
	g.Go(func() error {
		suggestions, err := h.store.RecentSuggestions(ctx, 24*time.Hour)
		resp.Suggestions = firstN(suggestions, dashboardItems)
		return err
	})
	g.Go(func() error {
		sources, err := h.store.ListSources(ctx)
		resp.Sources = sources
		return err
	})
	g.Go(func() error {
		a, err := h.store.Analytics(ctx)
		resp.Analytics = a
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get dashboard data", err)
		return
	}

	if resp.Trends == nil {
		resp.Trends = []trend.Trend{}
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []trend.Suggestion{}
	}
	if resp.Sources == nil {
		resp.Sources = []source.Source{}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
