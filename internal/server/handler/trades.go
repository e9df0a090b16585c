package handler

import (
	"log/slog"
	"net/http"

	"github.com/guardiana/sentinel/internal/domain"
)

// TradeHandler serves the live trade tape and the persisted flagged trades.
type TradeHandler struct {
	tape    domain.TapeCache
	flagged domain.TradeStore
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler. flagged may be nil when no
// persistent store is configured; the flagged endpoint then returns 404.
func NewTradeHandler(tape domain.TapeCache, flagged domain.TradeStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		tape:    tape,
		flagged: flagged,
		logger:  logHandler(logger, "trades"),
	}
}

// ListTrades returns the most recent trades from the tape, newest first.
// GET /api/trades?limit=25
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	trades, err := h.tape.RecentTrades(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// ListFlagged returns persisted flagged trades with pagination.
// GET /api/trades/flagged?limit=50&offset=0&since=2026-08-01T00:00:00Z
func (h *TradeHandler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	if h.flagged == nil {
		writeError(w, http.StatusNotFound, "flagged trade store not configured")
		return
	}

	opts := parseListOpts(r)
	trades, err := h.flagged.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list flagged trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load flagged trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
