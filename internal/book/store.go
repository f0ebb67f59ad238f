// Package book maintains the canonical two-sided order book for the active
// subscription. Sides are published copy-on-write: every mutation builds new
// sorted slices and swaps both in under one lock, so readers always observe
// a complete, consistent book and can hold snapshots without copying.
package book

import (
	"sort"
	"sync"

	"github.com/bookscope/bookscope/internal/domain"
)

// Store is the canonical order book. There is exactly one logical writer
// (the decode pipeline of the active subscription); any number of concurrent
// readers take immutable snapshots.
type Store struct {
	mu   sync.RWMutex
	bids []domain.PriceLevel // strictly descending by price
	asks []domain.PriceLevel // strictly ascending by price
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// ApplySnapshot replaces both sides wholesale, re-sorting each per its
// ordering invariant. The input slices are copied; callers may reuse them.
func (s *Store) ApplySnapshot(bids, asks []domain.PriceLevel) {
	newBids := append([]domain.PriceLevel(nil), bids...)
	newAsks := append([]domain.PriceLevel(nil), asks...)
	sortSide(newBids, true)
	sortSide(newAsks, false)

	s.mu.Lock()
	s.bids = newBids
	s.asks = newAsks
	s.mu.Unlock()
}

// ApplyDelta merges changed levels into each side: quantity zero removes the
// price, any other quantity inserts or overwrites it. A delta against a book
// that is empty on both sides is a no-op, since deltas are only meaningful
// relative to an established snapshot.
func (s *Store) ApplyDelta(bids, asks []domain.PriceLevel) {
	s.mu.RLock()
	curBids, curAsks := s.bids, s.asks
	s.mu.RUnlock()

	if len(curBids) == 0 && len(curAsks) == 0 {
		return
	}

	newBids := mergeSide(curBids, bids, true)
	newAsks := mergeSide(curAsks, asks, false)

	s.mu.Lock()
	s.bids = newBids
	s.asks = newAsks
	s.mu.Unlock()
}

// Reset empties both sides. Called when the active venue or symbol changes.
func (s *Store) Reset() {
	s.mu.Lock()
	s.bids = nil
	s.asks = nil
	s.mu.Unlock()
}

// Snapshot returns the current book. The returned side slices are the
// published immutable versions and must not be mutated.
func (s *Store) Snapshot() domain.OrderBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.OrderBook{Bids: s.bids, Asks: s.asks}
}

// View returns the best depth levels per side, each annotated with the
// running notional total accumulated walking away from the best price.
func (s *Store) View(depth int) domain.BookView {
	snap := s.Snapshot()
	return domain.BookView{
		Bids: annotate(snap.Bids, depth),
		Asks: annotate(snap.Asks, depth),
	}
}

func annotate(side []domain.PriceLevel, depth int) []domain.DepthLevel {
	if depth > len(side) || depth < 0 {
		depth = len(side)
	}
	out := make([]domain.DepthLevel, 0, depth)
	var total float64
	for _, lv := range side[:depth] {
		total += lv.Price * lv.Quantity
		out = append(out, domain.DepthLevel{Price: lv.Price, Quantity: lv.Quantity, Total: total})
	}
	return out
}

// sortSide orders one side per its invariant: bids descending, asks ascending.
func sortSide(side []domain.PriceLevel, descending bool) {
	sort.Slice(side, func(i, j int) bool {
		if descending {
			return side[i].Price > side[j].Price
		}
		return side[i].Price < side[j].Price
	})
}

// mergeSide applies delta levels to a sorted side and returns a new sorted
// slice, leaving the input untouched. Within the delta the last entry for a
// price wins. Runs in O(existing + delta log delta).
func mergeSide(existing, delta []domain.PriceLevel, descending bool) []domain.PriceLevel {
	if len(delta) == 0 {
		return existing
	}

	// Collapse the delta to one entry per price (last write wins), then sort
	// it into the side's order so a single linear merge suffices.
	byPrice := make(map[float64]float64, len(delta))
	for _, lv := range delta {
		byPrice[lv.Price] = lv.Quantity
	}
	changes := make([]domain.PriceLevel, 0, len(byPrice))
	for price, qty := range byPrice {
		changes = append(changes, domain.PriceLevel{Price: price, Quantity: qty})
	}
	sortSide(changes, descending)

	before := func(a, b float64) bool {
		if descending {
			return a > b
		}
		return a < b
	}

	merged := make([]domain.PriceLevel, 0, len(existing)+len(changes))
	i, j := 0, 0
	for i < len(existing) && j < len(changes) {
		switch {
		case existing[i].Price == changes[j].Price:
			if changes[j].Quantity != 0 {
				merged = append(merged, changes[j])
			}
			i++
			j++
		case before(existing[i].Price, changes[j].Price):
			merged = append(merged, existing[i])
			i++
		default:
			// A change at a price not currently present: a removal is a
			// no-op, a non-zero quantity is a fresh insertion.
			if changes[j].Quantity != 0 {
				merged = append(merged, changes[j])
			}
			j++
		}
	}
	merged = append(merged, existing[i:]...)
	for ; j < len(changes); j++ {
		if changes[j].Quantity != 0 {
			merged = append(merged, changes[j])
		}
	}
	return merged
}
