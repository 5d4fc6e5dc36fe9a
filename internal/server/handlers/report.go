// internal/server/handlers/report.go

package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/report"
)

// ReportStore reads recorded reports
type ReportStore interface {
	ListReports(ctx context.Context) ([]report.Report, error)
	GetReport(ctx context.Context, id int64) (*report.Report, error)
}

// ReportHandler handles report HTTP requests
type ReportHandler struct {
	responder
	store ReportStore
}

// NewReportHandler creates a new report handler
func NewReportHandler(store ReportStore, logger logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{
		responder: newResponder(logger, "report_handler"),
		store:     store,
	}
}

// GetReports returns every report, newest first
func (h *ReportHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports(r.Context())
	if err != nil {
		h.respondWithError(w, r, http.StatusInternalServerError, "Failed to get reports", err)
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}

	respondWithJSON(w, http.StatusOK, reports)
}

// GetReport returns one report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.respondWithError(w, r, http.StatusBadRequest, "Invalid report ID", nil)
		return
	}

	rep, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		h.respondNotFoundOr(w, r, err, "Report not found", "Failed to get report")
		return
	}

	respondWithJSON(w, http.StatusOK, rep)
}
