// internal/server/handlers/trend.go

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/trend"
)

// TrendStore reads persisted trends
type TrendStore interface {
	ListTrends(ctx context.Context) ([]trend.Trend, error)
	RecentTrends(ctx context.Context, window time.Duration) ([]trend.Trend, error)
	GetTrend(ctx context.Context, id int64) (*trend.Trend, error)
}

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	responder
	store TrendStore
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(store TrendStore, logger logrus.FieldLogger) *TrendHandler {
	return &TrendHandler{
		responder: newResponder(logger, "trend_handler"),
		store:     store,
	}
}

// GetTrends returns all trends, or those within ?hours when given
func (h *TrendHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	hours, ok, err := hoursParam(r)
	if err != nil {
		h.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var trends []trend.Trend
	if ok {
		trends, err = h.store.RecentTrends(r.Context(), time.Duration(hours)*time.Hour)
	} else {
		trends, err = h.store.ListTrends(r.Context())
	}
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get trends", err)
		return
	}
	if trends == nil {
		trends = []trend.Trend{}
	}

	respondWithJSON(w, http.StatusOK, trends)
}

// GetTrend returns a specific trend by ID
func (h *TrendHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid trend ID", nil)
		return
	}

	t, err := h.store.GetTrend(r.Context(), id)
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Trend not found", "Failed to get trend")
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}
