// internal/server/handlers/response.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"trendscope/internal/adapter/storage"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// responder carries the logger shared by every handler
type responder struct {
	logger logrus.FieldLogger
}

func newResponder(logger logrus.FieldLogger, component string) responder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return responder{logger: logger.WithField("component", component)}
}

// respondWithError writes an error body. Server errors are logged and
// their cause is returned in details.
func (rs responder) respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	resp := errorResponse{Error: message}

	if err != nil && code >= http.StatusInternalServerError {
		rs.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": code,
		}).Error(message)
		resp.Details = err.Error()
	}

	respondWithJSON(w, code, resp)
}

// respondNotFoundOr maps storage.ErrNotFound to 404 and anything else to 500
func (rs responder) respondNotFoundOr(w http.ResponseWriter, r *http.Request, err error, notFound, failed string) {
	if errors.Is(err, storage.ErrNotFound) {
		rs.respondWithError(w, r, http.StatusNotFound, notFound, nil)
		return
	}
	rs.respondWithError(w, r, http.StatusInternalServerError, failed, err)
}

// respondWithJSON writes payload as JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// idParam parses the {id} URL parameter
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// hoursParam parses an optional positive ?hours= query value
func hoursParam(r *http.Request) (int, bool, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return 0, false, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0, false, errors.New("hours must be a positive integer")
	}
	return hours, true, nil
}
