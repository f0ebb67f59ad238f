package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookscope/bookscope/internal/bus"
	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/sim"
)

// SimulationStore persists completed batches. Optional; a nil store disables
// history.
type SimulationStore interface {
	InsertBatch(ctx context.Context, b domain.SimulationBatch) error
}

// SimulateHandler runs execution simulations against the live book.
type SimulateHandler struct {
	feed      MarketData
	provider  sim.SnapshotProvider
	simulator *sim.Simulator
	store     SimulationStore
	bus       domain.SignalBus
	logger    *slog.Logger
}

// NewSimulateHandler creates a SimulateHandler. store may be nil.
func NewSimulateHandler(feed MarketData, provider sim.SnapshotProvider, simulator *sim.Simulator, store SimulationStore, sigBus domain.SignalBus, logger *slog.Logger) *SimulateHandler {
	return &SimulateHandler{
		feed:      feed,
		provider:  provider,
		simulator: simulator,
		store:     store,
		bus:       sigBus,
		logger:    logHandler(logger, "simulate"),
	}
}

// Simulate runs one scenario per requested delay against the active
// subscription's book and returns the batch. The response blocks until the
// longest delay has elapsed.
// POST /api/simulate
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	venueName, symbol, ok := h.feed.Active()
	if !ok {
		writeError(w, http.StatusConflict, "no active subscription")
		return
	}

	batch, err := h.simulator.Run(r.Context(), venueName, symbol, req, h.provider)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSimRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotSubscribed):
			writeError(w, http.StatusConflict, "no active subscription")
		case errors.Is(err, context.Canceled):
			// Client went away mid-simulation; nothing left to answer.
		default:
			h.logger.ErrorContext(r.Context(), "simulation failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "simulation failed")
		}
		return
	}

	h.publishBatch(r.Context(), batch)
	if h.store != nil {
		if err := h.store.InsertBatch(r.Context(), batch); err != nil {
			h.logger.WarnContext(r.Context(), "failed to persist simulation batch",
				slog.String("batch_id", batch.ID),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, http.StatusOK, batch)
}

func (h *SimulateHandler) publishBatch(ctx context.Context, batch domain.SimulationBatch) {
	payload, err := json.Marshal(bus.Envelope{
		Channel: bus.ChannelSimulation,
		Venue:   batch.Venue,
		Symbol:  batch.Symbol,
		Data:    batch,
	})
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, bus.ChannelSimulation, payload); err != nil {
		h.logger.WarnContext(ctx, "failed to publish simulation batch", slog.Any("error", err))
	}
}
