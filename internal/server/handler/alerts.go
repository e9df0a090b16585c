package handler

import (
	"log/slog"
	"net/http"

	"github.com/guardiana/sentinel/internal/domain"
)

// AlertHandler serves the persisted detection alerts.
type AlertHandler struct {
	alerts domain.AlertStore
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler over the given store.
func NewAlertHandler(alerts domain.AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logHandler(logger, "alerts"),
	}
}

// ListAlerts returns detection alerts, newest first, with pagination and an
// optional since filter.
// GET /api/alerts?limit=50&offset=0&since=2026-08-01T00:00:00Z
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	alerts, err := h.alerts.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list alerts failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.DetectionAlert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
