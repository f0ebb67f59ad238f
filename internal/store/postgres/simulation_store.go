package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookscope/bookscope/internal/domain"
)

// SimulationStore persists completed simulation batches.
type SimulationStore struct {
	pool *pgxpool.Pool
}

// NewSimulationStore creates a SimulationStore backed by the given pool.
func NewSimulationStore(pool *pgxpool.Pool) *SimulationStore {
	return &SimulationStore{pool: pool}
}

// InsertBatch stores a batch and all of its per-delay results. Re-inserting
// an existing batch ID is silently skipped.
func (s *SimulationStore) InsertBatch(ctx context.Context, b domain.SimulationBatch) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO simulation_batches (id, venue, symbol, side, order_type, price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.Venue, b.Symbol, b.Request.Side, b.Request.Type,
		b.Request.Price, b.Request.Quantity, b.CreatedAt,
	)
	for _, r := range b.Results {
		batch.Queue(`
			INSERT INTO simulation_results (
				batch_id, delay_seconds, filled_quantity, fill_percentage,
				avg_fill_price, market_price, slippage_pct, warning, error
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (batch_id, delay_seconds) DO NOTHING`,
			b.ID, r.Delay, r.FilledQuantity, r.FillPercentage,
			r.AvgFillPrice, r.MarketPrice, r.SlippagePct, r.Warning, r.Error,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert simulation batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recent batches, newest first, with their
// results ordered by ascending delay.
func (s *SimulationStore) ListRecent(ctx context.Context, limit int) ([]domain.SimulationBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, venue, symbol, side, order_type, price, quantity, created_at
		FROM simulation_batches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list simulation batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.SimulationBatch
	index := make(map[string]int)
	for rows.Next() {
		var b domain.SimulationBatch
		if err := rows.Scan(
			&b.ID, &b.Venue, &b.Symbol, &b.Request.Side, &b.Request.Type,
			&b.Request.Price, &b.Request.Quantity, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan simulation batch: %w", err)
		}
		index[b.ID] = len(batches)
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list simulation batches: %w", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}

	resRows, err := s.pool.Query(ctx, `
		SELECT batch_id, delay_seconds, filled_quantity, fill_percentage,
			avg_fill_price, market_price, slippage_pct, warning, error
		FROM simulation_results
		WHERE batch_id = ANY($1)
		ORDER BY batch_id, delay_seconds ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: list simulation results: %w", err)
	}
	defer resRows.Close()

	for resRows.Next() {
		var batchID string
		var r domain.SimulationResult
		if err := resRows.Scan(
			&batchID, &r.Delay, &r.FilledQuantity, &r.FillPercentage,
			&r.AvgFillPrice, &r.MarketPrice, &r.SlippagePct, &r.Warning, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan simulation result: %w", err)
		}
		i, ok := index[batchID]
		if !ok {
			continue
		}
		batches[i].Results = append(batches[i].Results, r)
		batches[i].Request.Delays = append(batches[i].Request.Delays, r.Delay)
	}
	if err := resRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list simulation results: %w", err)
	}

	return batches, nil
}
