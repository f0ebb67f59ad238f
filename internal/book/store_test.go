package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/domain"
)

func levels(pairs ...float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PriceLevel{Price: pairs[i], Quantity: pairs[i+1]})
	}
	return out
}

func TestStore_ApplySnapshot(t *testing.T) {
	s := NewStore()

	t.Run("replaces both sides and sorts", func(t *testing.T) {
		s.ApplySnapshot(
			levels(99, 1, 101, 2, 100, 3), // unsorted bids
			levels(103, 1, 102, 2),        // unsorted asks
		)

		snap := s.Snapshot()
		assert.Equal(t, levels(101, 2, 100, 3, 99, 1), snap.Bids)
		assert.Equal(t, levels(102, 2, 103, 1), snap.Asks)
	})

	t.Run("second snapshot discards the first", func(t *testing.T) {
		s.ApplySnapshot(levels(50, 1), levels(51, 1))

		snap := s.Snapshot()
		assert.Equal(t, levels(50, 1), snap.Bids)
		assert.Equal(t, levels(51, 1), snap.Asks)
	})
}

func TestStore_ApplyDelta(t *testing.T) {
	newBook := func() *Store {
		s := NewStore()
		s.ApplySnapshot(levels(100, 2, 99, 5), levels(101, 3, 102, 1))
		return s
	}

	t.Run("insert new level keeps ordering", func(t *testing.T) {
		s := newBook()
		s.ApplyDelta(levels(99.5, 4), nil)

		snap := s.Snapshot()
		assert.Equal(t, levels(100, 2, 99.5, 4, 99, 5), snap.Bids)
	})

	t.Run("overwrite existing level", func(t *testing.T) {
		s := newBook()
		s.ApplyDelta(nil, levels(101, 7))

		snap := s.Snapshot()
		assert.Equal(t, levels(101, 7, 102, 1), snap.Asks)
	})

	t.Run("zero quantity removes the level", func(t *testing.T) {
		s := newBook()
		s.ApplyDelta(levels(100, 0), nil)

		snap := s.Snapshot()
		assert.Equal(t, levels(99, 5), snap.Bids)
	})

	t.Run("removal of absent level is a no-op", func(t *testing.T) {
		s := newBook()
		s.ApplyDelta(levels(98, 0), levels(105, 0))

		snap := s.Snapshot()
		assert.Equal(t, levels(100, 2, 99, 5), snap.Bids)
		assert.Equal(t, levels(101, 3, 102, 1), snap.Asks)
	})

	t.Run("delta before any snapshot is dropped", func(t *testing.T) {
		s := NewStore()
		s.ApplyDelta(levels(100, 1), levels(101, 1))

		assert.True(t, s.Snapshot().Empty())
	})

	t.Run("last write wins within one delta", func(t *testing.T) {
		s := newBook()
		s.ApplyDelta(levels(100, 9, 100, 1), nil)

		best, ok := s.Snapshot().BestBid()
		require.True(t, ok)
		assert.Equal(t, 1.0, best.Quantity)
	})
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.ApplySnapshot(levels(100, 1), levels(101, 1))

	s.Reset()

	assert.True(t, s.Snapshot().Empty())

	// A delta arriving after the reset must not resurrect the book.
	s.ApplyDelta(levels(100, 1), nil)
	assert.True(t, s.Snapshot().Empty())
}

func TestStore_SnapshotImmutability(t *testing.T) {
	s := NewStore()
	s.ApplySnapshot(levels(100, 2, 99, 5), levels(101, 3))

	before := s.Snapshot()
	s.ApplyDelta(levels(100, 0), levels(101, 9))

	// The earlier snapshot still observes the pre-delta book.
	assert.Equal(t, levels(100, 2, 99, 5), before.Bids)
	assert.Equal(t, levels(101, 3), before.Asks)

	after := s.Snapshot()
	assert.Equal(t, levels(99, 5), after.Bids)
	assert.Equal(t, levels(101, 9), after.Asks)
}

func TestStore_View(t *testing.T) {
	s := NewStore()
	s.ApplySnapshot(levels(100, 2, 99, 5), levels(101, 3, 102, 1, 103, 4))

	t.Run("cumulative notional totals", func(t *testing.T) {
		view := s.View(2)

		require.Len(t, view.Bids, 2)
		assert.Equal(t, 200.0, view.Bids[0].Total)
		assert.Equal(t, 200.0+99*5, view.Bids[1].Total)

		require.Len(t, view.Asks, 2)
		assert.Equal(t, 303.0, view.Asks[0].Total)
		assert.Equal(t, 303.0+102, view.Asks[1].Total)
	})

	t.Run("depth beyond available levels", func(t *testing.T) {
		view := s.View(10)
		assert.Len(t, view.Bids, 2)
		assert.Len(t, view.Asks, 3)
	})

	t.Run("empty book yields empty view", func(t *testing.T) {
		view := NewStore().View(5)
		assert.Empty(t, view.Bids)
		assert.Empty(t, view.Asks)
	})
}
