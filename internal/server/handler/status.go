package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
)

// StatusHandler reports the feed connection state.
type StatusHandler struct {
	feed      MarketData
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. startedAt anchors the reported
// uptime.
func NewStatusHandler(feed MarketData, startedAt time.Time, logger *slog.Logger) *StatusHandler {
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &StatusHandler{feed: feed, startedAt: startedAt, logger: logHandler(logger, "status")}
}

type statusResponse struct {
	Venue         string            `json:"venue,omitempty"`
	Symbol        string            `json:"symbol,omitempty"`
	Status        domain.ConnStatus `json:"status"`
	LastFrameAt   *time.Time        `json:"last_frame_at,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
}

// Snapshot builds the current status payload. The WebSocket hub pushes the
// same payload to clients on connect.
func (h *StatusHandler) Snapshot() any {
	resp := statusResponse{
		Status:        h.feed.Status(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if venueName, symbol, ok := h.feed.Active(); ok {
		resp.Venue = venueName
		resp.Symbol = symbol
	}
	if at, ok := h.feed.LastFrame(); ok {
		resp.LastFrameAt = &at
	}
	return resp
}

// GetStatus returns the connection state of the active subscription.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshot())
}
