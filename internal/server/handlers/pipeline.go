// internal/server/handlers/pipeline.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/trend"
	"trendscope/internal/service/collection"
	"trendscope/internal/service/reporting"
	"trendscope/internal/service/scheduler"
)

// Collector runs collection passes without analysis
type Collector interface {
	CollectAll(ctx context.Context) collection.Result
	CollectSingle(ctx context.Context, platform string) ([]trend.RawSignal, error)
}

// Jobs exposes the scheduler's guarded entries
type Jobs interface {
	RunCollection(ctx context.Context) (bool, error)
	RunReport(ctx context.Context) (bool, error)
	Status() scheduler.Status
}

// TestSender mails a preview digest
type TestSender interface {
	SendTest(ctx context.Context, email string) error
}

type skippedResponse struct {
	Skipped bool   `json:"skipped"`
	Message string `json:"message"`
}

// PipelineHandler triggers collection, analysis and reports on demand
type PipelineHandler struct {
	responder
	collector Collector
	jobs      Jobs
	reports   TestSender
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(collector Collector, jobs Jobs, reports TestSender, logger logrus.FieldLogger) *PipelineHandler {
	return &PipelineHandler{
		responder: newResponder(logger, "pipeline_handler"),
		collector: collector,
		jobs:      jobs,
		reports:   reports,
	}
}

type scrapeRequest struct {
	Platform string `json:"platform"`
}

// Scrape collects from one platform when given, otherwise from all
func (h *PipelineHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if req.Platform == "" {
		respondWithJSON(w, http.StatusOK, h.collector.CollectAll(r.Context()))
		return
	}

	items, err := h.collector.CollectSingle(r.Context(), req.Platform)
	if errors.Is(err, collection.ErrUnsupportedPlatform) {
		h.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if errors.Is(err, collection.ErrSourceDisabled) {
		h.respondWithError(w, r, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Scraping failed", err)
		return
	}
	if items == nil {
		items = []trend.RawSignal{}
	}

	respondWithJSON(w, http.StatusOK, collection.Result{
		Success:   true,
		Items:     items,
		Errors:    []string{},
		Succeeded: 1,
		Timestamp: time.Now().UTC(),
	})
}

// Analyze runs a collection cycle through the scheduler guard. The cycle
// outlives a client disconnect.
func (h *PipelineHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ran, err := h.jobs.RunCollection(context.WithoutCancel(r.Context()))
	switch {
	case err != nil:
		h.respondWithError(w, r, http.StatusInternalServerError, "Trend analysis failed", err)
	case !ran:
		respondWithJSON(w, http.StatusAccepted, skippedResponse{Skipped: true, Message: "Trend analysis already running"})
	default:
		respondWithJSON(w, http.StatusOK, messageResponse{Message: "Trend analysis completed successfully"})
	}
}

// GenerateReport runs a report cycle through the scheduler guard
func (h *PipelineHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ran, err := h.jobs.RunReport(context.WithoutCancel(r.Context()))
	switch {
	case err != nil:
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to generate report", err)
	case !ran:
		respondWithJSON(w, http.StatusAccepted, skippedResponse{Skipped: true, Message: "Report generation already running"})
	default:
		respondWithJSON(w, http.StatusOK, messageResponse{Message: "Report generated and sent successfully"})
	}
}

type testEmailRequest struct {
	Email string `json:"email"`
}

// SendTestEmail mails the current digest to one address
func (h *PipelineHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	err := h.reports.SendTest(r.Context(), req.Email)
	if errors.Is(err, reporting.ErrNoRecipient) {
		h.respondWithError(w, r, http.StatusBadRequest, "Email address required", nil)
		return
	}
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to send test email", err)
		return
	}

	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Test email sent successfully"})
}

// SchedulerStatus reports cadences, next runs and guard state
func (h *PipelineHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.jobs.Status())
}
