package domain

// PriceLevel is a single price+quantity entry on one side of an order book.
// Quantity is always the displayed unit size. In a delta, a quantity of
// exactly zero means "remove this price level", never "a level of zero size".
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a two-sided price ladder. Bids are sorted strictly descending
// by price and asks strictly ascending, so Bids[0] is the best bid and
// Asks[0] the best ask. Instances handed out by the book store are immutable
// snapshots; holders must not mutate the side slices.
type OrderBook struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// Empty reports whether both sides hold no levels.
func (b OrderBook) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// BestBid returns the highest bid, if any.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// DepthLevel is a price level annotated with the running notional total
// (cumulative price*quantity walking away from the best price).
type DepthLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

// BookView is the read-only, depth-limited view of the order book exposed to
// the presentation layer and other concurrent readers.
type BookView struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// MarketStats carries the last trade price and the 24-hour volume reported by
// the venue ticker channel. It is replaced wholesale on every ticker event.
type MarketStats struct {
	Last   float64 `json:"last"`
	Vol24h float64 `json:"vol_24h"`
}
