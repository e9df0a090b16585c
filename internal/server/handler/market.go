package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/guardiana/sentinel/internal/domain"
)

// MarketHandler serves the live market state endpoints: the order book
// snapshot, the mid price history, and the surveillance metrics. All three
// read from the cache the simulation driver keeps current.
type MarketHandler struct {
	books   domain.BookCache
	history domain.HistoryCache
	metrics domain.MetricsCache
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler over the given caches.
func NewMarketHandler(books domain.BookCache, history domain.HistoryCache, metrics domain.MetricsCache, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		books:   books,
		history: history,
		metrics: metrics,
		logger:  logHandler(logger, "market"),
	}
}

// GetBook returns the latest order book snapshot. 404 until the simulation
// has produced its first book.
// GET /api/book
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.GetBook(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no order book yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "get book failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load order book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// GetHistory returns the rolling mid price history, oldest first.
// GET /api/history
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	points, err := h.history.PriceHistory(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if points == nil {
		points = []domain.PricePoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": points})
}

// GetMetrics returns the current surveillance metrics along with the derived
// risk level.
// GET /api/metrics
func (h *MarketHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.metrics.GetMetrics(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no metrics yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "get metrics failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": m,
		"risk":    m.Risk(),
	})
}
