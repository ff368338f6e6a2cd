package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simbroker/simbroker/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL. Samples are
// stored as a JSONB array, matching the replace-wholesale semantics: every
// refresh overwrites the full series.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Replace upserts the series keyed by (stock, name), overwriting the samples
// and refresh timestamp.
func (s *HistoryStore) Replace(ctx context.Context, series domain.HistorySeries) error {
	samples, err := json.Marshal(series.Samples)
	if err != nil {
		return fmt.Errorf("postgres: marshal samples for %s/%s: %w", series.StockID, series.Name, err)
	}

	const query = `
		INSERT INTO history_series (id, stock_id, name, period, interval, samples, refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (stock_id, name) DO UPDATE SET
			period       = EXCLUDED.period,
			interval     = EXCLUDED.interval,
			samples      = EXCLUDED.samples,
			refreshed_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		series.ID, series.StockID, series.Name, series.Period, series.Interval, samples)
	if err != nil {
		return fmt.Errorf("postgres: replace history %s/%s: %w", series.StockID, series.Name, err)
	}
	return nil
}

// ListByStock returns all series of a stock ordered by name.
func (s *HistoryStore) ListByStock(ctx context.Context, stockID string) ([]domain.HistorySeries, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, stock_id, name, period, interval, samples, refreshed_at
		FROM history_series WHERE stock_id = $1 ORDER BY name`, stockID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history for %s: %w", stockID, err)
	}
	defer rows.Close()

	var series []domain.HistorySeries
	for rows.Next() {
		var h domain.HistorySeries
		var samples []byte
		if err := rows.Scan(&h.ID, &h.StockID, &h.Name, &h.Period, &h.Interval, &samples, &h.RefreshedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan history row: %w", err)
		}
		if err := json.Unmarshal(samples, &h.Samples); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal samples: %w", err)
		}
		series = append(series, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate history rows: %w", err)
	}
	return series, nil
}

// DeleteAll clears all history series; used only by the catalog reseed.
func (s *HistoryStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM history_series`); err != nil {
		return fmt.Errorf("postgres: delete history: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
