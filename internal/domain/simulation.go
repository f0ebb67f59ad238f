package domain

import (
	"fmt"
	"time"
)

// Side is the direction of a simulated order.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// OrderType distinguishes limit from market simulation requests.
type OrderType string

const (
	OrderLimit  OrderType = "Limit"
	OrderMarket OrderType = "Market"
)

// SimulationRequest describes a hypothetical order to estimate against the
// live book, under one or more delay scenarios.
type SimulationRequest struct {
	Side     Side      `json:"side"`
	Type     OrderType `json:"type"`
	Price    float64   `json:"price,omitempty"` // required for Limit, ignored for Market
	Quantity float64   `json:"quantity"`
	Delays   []int     `json:"delays"` // seconds, non-negative
}

// Validate rejects a request before any scenario is scheduled. All failures
// wrap ErrInvalidSimRequest.
func (r SimulationRequest) Validate() error {
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("%w: side must be %q or %q", ErrInvalidSimRequest, SideBuy, SideSell)
	}
	if r.Type != OrderLimit && r.Type != OrderMarket {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalidSimRequest, OrderLimit, OrderMarket)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidSimRequest)
	}
	if r.Type == OrderLimit && r.Price <= 0 {
		return fmt.Errorf("%w: limit orders require a positive price", ErrInvalidSimRequest)
	}
	if len(r.Delays) == 0 {
		return fmt.Errorf("%w: at least one delay scenario is required", ErrInvalidSimRequest)
	}
	for _, d := range r.Delays {
		if d < 0 {
			return fmt.Errorf("%w: delay must be non-negative, got %d", ErrInvalidSimRequest, d)
		}
	}
	return nil
}

// SimulationResult is the outcome of one delay scenario. Numeric fields are
// pointers so that "absent" is distinguishable from zero; Error is set
// exclusively when no reference market price existed at simulation time, in
// which case every numeric pointer is nil.
type SimulationResult struct {
	Delay          int      `json:"delay"`
	FilledQuantity float64  `json:"filled_quantity"`
	FillPercentage float64  `json:"fill_percentage"`
	AvgFillPrice   *float64 `json:"avg_fill_price,omitempty"`
	MarketPrice    *float64 `json:"market_price,omitempty"`
	SlippagePct    *float64 `json:"slippage_pct,omitempty"`
	Warning        string   `json:"warning,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// SimulationBatch groups the per-delay results of one request, keyed by a
// batch ID. Batches from concurrent requests are never merged.
type SimulationBatch struct {
	ID        string             `json:"id"`
	Venue     string             `json:"venue"`
	Symbol    string             `json:"symbol"`
	Request   SimulationRequest  `json:"request"`
	Results   []SimulationResult `json:"results"`
	CreatedAt time.Time          `json:"created_at"`
}
