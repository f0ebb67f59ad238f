package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/venue"
)

// Subscriber switches the active venue and symbol.
type Subscriber interface {
	Subscribe(ctx context.Context, venueName, symbol string) error
}

// SubscriptionHandler manages the single active market subscription.
type SubscriptionHandler struct {
	feed   Subscriber
	logger *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(feed Subscriber, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{feed: feed, logger: logHandler(logger, "subscription")}
}

type subscriptionRequest struct {
	Venue  string `json:"venue"`
	Symbol string `json:"symbol"`
}

// UpdateSubscription switches the feed to the requested venue and symbol,
// tearing down the previous subscription first.
// PUT /api/subscription
func (h *SubscriptionHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Venue == "" || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "venue and symbol are required")
		return
	}

	if err := h.feed.Subscribe(r.Context(), req.Venue, req.Symbol); err != nil {
		if errors.Is(err, domain.ErrUnknownVenue) {
			writeError(w, http.StatusBadRequest, "unknown venue: "+req.Venue)
			return
		}
		h.logger.ErrorContext(r.Context(), "subscription switch failed",
			slog.String("venue", req.Venue),
			slog.String("symbol", req.Symbol),
			slog.Any("error", err),
		)
		writeError(w, http.StatusBadGateway, "failed to connect to venue")
		return
	}

	writeJSON(w, http.StatusOK, subscriptionRequest{Venue: req.Venue, Symbol: req.Symbol})
}

// ListVenues returns the supported venue names.
// GET /api/venues
func (h *SubscriptionHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"venues": venue.Names()})
}
