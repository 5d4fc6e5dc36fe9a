// internal/server/handlers/setting.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/setting"
)

// SettingStore reads and writes keyed settings
type SettingStore interface {
	ListSettings(ctx context.Context) ([]setting.Setting, error)
	GetSetting(ctx context.Context, key string) (*setting.Setting, error)
	UpdateSetting(ctx context.Context, key string, value json.RawMessage) (setting.Setting, error)
}

// CadenceValidator checks cron expressions before they are stored
type CadenceValidator interface {
	ValidateCadence(expr string) error
}

// SettingHandler handles setting HTTP requests
type SettingHandler struct {
	responder
	store    SettingStore
	cadences CadenceValidator
}

// NewSettingHandler creates a new setting handler
func NewSettingHandler(store SettingStore, cadences CadenceValidator, logger logrus.FieldLogger) *SettingHandler {
	return &SettingHandler{
		responder: newResponder(logger, "setting_handler"),
		store:     store,
		cadences:  cadences,
	}
}

// GetSettings returns every setting
func (h *SettingHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	if settings == nil {
		settings = []setting.Setting{}
	}

	respondWithJSON(w, http.StatusOK, settings)
}

// GetSetting returns one setting by key
func (h *SettingHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Setting not found", "Failed to get setting")
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}

type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// UpdateSetting replaces a setting value. Cadence keys must hold a valid
// cron expression; they take effect when the scheduler next starts.
func (h *SettingHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req updateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Value) == 0 {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if key == setting.KeyScrapingInterval || key == setting.KeyDailyReportTime {
		var expr string
		if err := json.Unmarshal(req.Value, &expr); err != nil {
			h.respondWithError(w, r, http.StatusBadRequest, "Cadence must be a string", nil)
			return
		}
		if h.cadences != nil {
			if err := h.cadences.ValidateCadence(expr); err != nil {
				h.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
				return
			}
		}
	}

	st, err := h.store.UpdateSetting(r.Context(), key, req.Value)
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to update setting", err)
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}
