package handler

import (
	"log/slog"
	"net/http"

	"github.com/bookscope/bookscope/internal/domain"
)

// BookHandler serves the normalized order book and market statistics.
type BookHandler struct {
	feed   MarketData
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler backed by the given feed.
func NewBookHandler(feed MarketData, logger *slog.Logger) *BookHandler {
	return &BookHandler{feed: feed, logger: logHandler(logger, "book")}
}

type bookResponse struct {
	Venue  string              `json:"venue"`
	Symbol string              `json:"symbol"`
	Bids   []domain.DepthLevel `json:"bids"`
	Asks   []domain.DepthLevel `json:"asks"`
}

// GetBook returns the top levels of the active book with cumulative totals.
// GET /api/book?depth=N
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, ok := h.feed.Active()
	if !ok {
		writeError(w, http.StatusConflict, "no active subscription")
		return
	}

	view := h.feed.BookView(queryInt(r, "depth", 0))
	writeJSON(w, http.StatusOK, bookResponse{
		Venue:  venueName,
		Symbol: symbol,
		Bids:   view.Bids,
		Asks:   view.Asks,
	})
}

type statsResponse struct {
	Venue  string  `json:"venue"`
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Vol24h float64 `json:"vol_24h"`
}

// GetStats returns the latest ticker statistics for the active subscription.
// GET /api/stats
func (h *BookHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, ok := h.feed.Active()
	if !ok {
		writeError(w, http.StatusConflict, "no active subscription")
		return
	}

	stats, ok := h.feed.Stats()
	if !ok {
		writeError(w, http.StatusNotFound, "no market statistics received yet")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Venue:  venueName,
		Symbol: symbol,
		Last:   stats.Last,
		Vol24h: stats.Vol24h,
	})
}
