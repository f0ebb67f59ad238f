// Package sim estimates the fill outcome of a hypothetical order by walking
// a point-in-time snapshot of the live order book, under one or more delay
// scenarios that each observe the book at a different future instant.
package sim

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bookscope/bookscope/internal/domain"
)

// Messages surfaced to the presentation layer, kept stable for consumers.
const (
	MsgNoMarketPrice  = "Market price not available."
	MsgHighImpactWarn = "Warning: High market impact expected!"
)

// DefaultWarnSlippagePct is the slippage threshold (percent) above which a
// market-impact warning is attached to a result.
const DefaultWarnSlippagePct = 1.0

// SnapshotProvider hands out the book state observed after waiting the given
// delay. In the live system this is the feed manager: it waits out the delay
// and snapshots whatever the active subscription's book holds at that moment.
type SnapshotProvider interface {
	BookAt(ctx context.Context, delay time.Duration) (domain.OrderBook, error)
}

// Simulator runs simulation batches. Scenarios within a batch execute
// concurrently and share no mutable state; each walks its own frozen
// snapshot, so in-progress book mutation is never observable mid-walk.
type Simulator struct {
	warnSlippagePct float64
	logger          *slog.Logger
}

// New creates a Simulator. A non-positive warnSlippagePct falls back to
// DefaultWarnSlippagePct.
func New(warnSlippagePct float64, logger *slog.Logger) *Simulator {
	if warnSlippagePct <= 0 {
		warnSlippagePct = DefaultWarnSlippagePct
	}
	return &Simulator{
		warnSlippagePct: warnSlippagePct,
		logger:          logger.With(slog.String("component", "simulator")),
	}
}

// Run validates the request, then executes one scenario per distinct delay
// and returns the batch with results ordered by ascending delay. Validation
// failures reject the whole request before any scenario is scheduled.
func (s *Simulator) Run(ctx context.Context, venueName, symbol string, req domain.SimulationRequest, provider SnapshotProvider) (domain.SimulationBatch, error) {
	if err := req.Validate(); err != nil {
		return domain.SimulationBatch{}, err
	}

	delays := dedupeDelays(req.Delays)
	batch := domain.SimulationBatch{
		ID:        uuid.NewString(),
		Venue:     venueName,
		Symbol:    symbol,
		Request:   req,
		Results:   make([]domain.SimulationResult, len(delays)),
		CreatedAt: time.Now().UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, delay := range delays {
		i, delay := i, delay
		g.Go(func() error {
			snap, err := provider.BookAt(ctx, time.Duration(delay)*time.Second)
			if err != nil {
				return err
			}
			batch.Results[i] = s.runScenario(delay, req, snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SimulationBatch{}, err
	}

	s.logger.DebugContext(ctx, "simulation batch complete",
		slog.String("batch_id", batch.ID),
		slog.Int("scenarios", len(delays)),
	)
	return batch, nil
}

// runScenario walks one frozen snapshot and computes the fill metrics.
func (s *Simulator) runScenario(delay int, req domain.SimulationRequest, snap domain.OrderBook) domain.SimulationResult {
	res := domain.SimulationResult{Delay: delay}

	// Reference market price: best ask for a buy, best bid for a sell.
	var ref domain.PriceLevel
	var ok bool
	if req.Side == domain.SideBuy {
		ref, ok = snap.BestAsk()
	} else {
		ref, ok = snap.BestBid()
	}
	if !ok {
		res.Error = MsgNoMarketPrice
		return res
	}

	simPrice := req.Price
	if req.Type == domain.OrderMarket {
		simPrice = ref.Price
	}

	filled, cost := walk(snap, req.Side, req.Type, simPrice, req.Quantity)

	res.FilledQuantity = filled
	res.FillPercentage = filled / req.Quantity * 100
	marketPrice := ref.Price
	res.MarketPrice = &marketPrice

	if filled > 0 {
		avg := cost / filled
		res.AvgFillPrice = &avg
		slippage := math.Abs(avg-marketPrice) / marketPrice * 100
		res.SlippagePct = &slippage
		if slippage > s.warnSlippagePct {
			res.Warning = MsgHighImpactWarn
		}
	}
	return res
}

// walk consumes the opposite side of the book in best-price-first order,
// filling each level the simulated price crosses (market orders cross
// everything) until the order quantity is exhausted or the side runs out.
// It returns the filled quantity and the total cost.
func walk(snap domain.OrderBook, side domain.Side, typ domain.OrderType, simPrice, quantity float64) (filled, cost float64) {
	levels := snap.Asks
	crosses := func(levelPrice float64) bool { return simPrice >= levelPrice }
	if side == domain.SideSell {
		levels = snap.Bids
		crosses = func(levelPrice float64) bool { return simPrice <= levelPrice }
	}

	remaining := quantity
	for _, lv := range levels {
		if typ != domain.OrderMarket && !crosses(lv.Price) {
			continue
		}
		fill := math.Min(remaining, lv.Quantity)
		filled += fill
		cost += fill * lv.Price
		remaining -= fill
		if remaining <= 0 {
			break
		}
	}
	return filled, cost
}

// dedupeDelays returns the distinct delays in ascending order, fixing the
// order in which batch results are reported.
func dedupeDelays(delays []int) []int {
	seen := make(map[int]struct{}, len(delays))
	out := make([]int, 0, len(delays))
	for _, d := range delays {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
