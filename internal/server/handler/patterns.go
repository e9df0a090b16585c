package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/guardiana/sentinel/internal/domain"
)

// PatternInjector triggers a manipulation pattern against the live market.
// *sim.Driver satisfies it.
type PatternInjector interface {
	TriggerPattern(ctx context.Context, typ domain.PatternType) (domain.ManipulationPattern, error)
}

// PatternHandler serves the injected pattern history and the manual trigger
// endpoint.
type PatternHandler struct {
	patterns domain.PatternStore
	injector PatternInjector
	logger   *slog.Logger
}

// NewPatternHandler creates a PatternHandler. patterns may be nil when no
// persistent store is configured.
func NewPatternHandler(patterns domain.PatternStore, injector PatternInjector, logger *slog.Logger) *PatternHandler {
	return &PatternHandler{
		patterns: patterns,
		injector: injector,
		logger:   logHandler(logger, "patterns"),
	}
}

// ListPatterns returns injected patterns, newest first, with pagination.
// GET /api/patterns?limit=50&offset=0
func (h *PatternHandler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	if h.patterns == nil {
		writeError(w, http.StatusNotFound, "pattern store not configured")
		return
	}

	opts := parseListOpts(r)
	patterns, err := h.patterns.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list patterns failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load patterns")
		return
	}
	if patterns == nil {
		patterns = []domain.ManipulationPattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// triggerRequest is the body of the trigger endpoint. An empty type injects a
// random pattern.
type triggerRequest struct {
	Type string `json:"type"`
}

// TriggerPattern injects a manipulation pattern into the live simulation and
// returns the generated pattern. 400 on an unknown pattern type.
// POST /api/patterns/trigger {"type":"spoofing"}
func (h *PatternHandler) TriggerPattern(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pattern, err := h.injector.TriggerPattern(r.Context(), domain.PatternType(req.Type))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPatternType) {
			writeError(w, http.StatusBadRequest, "unknown pattern type: "+req.Type)
			return
		}
		h.logger.ErrorContext(r.Context(), "trigger pattern failed",
			slog.String("type", req.Type),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to trigger pattern")
		return
	}

	writeJSON(w, http.StatusCreated, pattern)
}
