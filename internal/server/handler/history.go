package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bookscope/bookscope/internal/domain"
)

// SimulationLister reads back persisted simulation batches.
type SimulationLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.SimulationBatch, error)
}

// HistoryHandler serves persisted simulation history.
type HistoryHandler struct {
	store  SimulationLister
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(store SimulationLister, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logHandler(logger, "history")}
}

// ListRecent returns the most recent simulation batches, newest first. When
// no store is configured the history is simply empty, not an error.
// GET /api/simulations/recent?limit=N
func (h *HistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"batches": []domain.SimulationBatch{}})
		return
	}
	batches, err := h.store.ListRecent(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list simulation history", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list simulation history")
		return
	}
	if batches == nil {
		batches = []domain.SimulationBatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}
