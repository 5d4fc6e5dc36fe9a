// internal/server/handlers/suggestion.go

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/trend"
)

// SuggestionStore reads persisted suggestions
type SuggestionStore interface {
	ListSuggestions(ctx context.Context) ([]trend.Suggestion, error)
	RecentSuggestions(ctx context.Context, window time.Duration) ([]trend.Suggestion, error)
	SuggestionsByTrend(ctx context.Context, trendID int64) ([]trend.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (*trend.Suggestion, error)
}

// SuggestionHandler handles suggestion HTTP requests
type SuggestionHandler struct {
	responder
	store SuggestionStore
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(store SuggestionStore, logger logrus.FieldLogger) *SuggestionHandler {
	return &SuggestionHandler{
		responder: newResponder(logger, "suggestion_handler"),
		store:     store,
	}
}

// GetSuggestions returns suggestions filtered by ?trendId, else by ?hours, else all
func (h *SuggestionHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	var (
		suggestions []trend.Suggestion
		err         error
	)

	if raw := r.URL.Query().Get("trendId"); raw != "" {
		trendID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			h.respondWithError(w, r, http.StatusBadRequest, "Invalid trendId", nil)
			return
		}
		suggestions, err = h.store.SuggestionsByTrend(r.Context(), trendID)
	} else {
		hours, ok, herr := hoursParam(r)
		if herr != nil {
			h.respondWithError(w, r, http.StatusBadRequest, herr.Error(), nil)
			return
		}
		if ok {
			suggestions, err = h.store.RecentSuggestions(r.Context(), time.Duration(hours)*time.Hour)
		} else {
			suggestions, err = h.store.ListSuggestions(r.Context())
		}
	}
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get suggestions", err)
		return
	}
	if suggestions == nil {
		suggestions = []trend.Suggestion{}
	}

	respondWithJSON(w, http.StatusOK, suggestions)
}

// GetSuggestion returns one suggestion
func (h *SuggestionHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid suggestion ID", nil)
		return
	}

	s, err := h.store.GetSuggestion(r.Context(), id)
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Suggestion not found", "Failed to get suggestion")
		return
	}

	respondWithJSON(w, http.StatusOK, s)
}
