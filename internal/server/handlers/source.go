// internal/server/handlers/source.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/source"
)

// SourceStore reads and updates monitored sources
type SourceStore interface {
	ListSources(ctx context.Context) ([]source.Source, error)
	GetSource(ctx context.Context, id int64) (*source.Source, error)
	UpdateSourceStatus(ctx context.Context, platform string, status source.Status, message string) error
}

// SourceHandler handles source HTTP requests
type SourceHandler struct {
	responder
	store SourceStore
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(store SourceStore, logger logrus.FieldLogger) *SourceHandler {
	return &SourceHandler{
		responder: newResponder(logger, "source_handler"),
		store:     store,
	}
}

// GetSources returns every source including the system pseudo-source
func (h *SourceHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get sources", err)
		return
	}
	if sources == nil {
		sources = []source.Source{}
	}

	respondWithJSON(w, http.StatusOK, sources)
}

// GetSource returns one source
func (h *SourceHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid source ID", nil)
		return
	}

	src, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Source not found", "Failed to get source")
		return
	}

	respondWithJSON(w, http.StatusOK, src)
}

type updateStatusRequest struct {
	Status       source.Status `json:"status"`
	ErrorMessage string        `json:"errorMessage"`
}

// UpdateStatus sets a source's health by ID
func (h *SourceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid source ID", nil)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if !req.Status.Valid() {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid source status", nil)
		return
	}

	src, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Source not found", "Failed to update source status")
		return
	}

	if err := h.store.UpdateSourceStatus(r.Context(), src.Platform, req.Status, req.ErrorMessage); err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to update source status", err)
		return
	}

	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Source status updated"})
}
