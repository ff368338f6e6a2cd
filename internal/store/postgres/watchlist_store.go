package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simbroker/simbroker/internal/domain"
)

// WatchlistStore implements domain.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	pool *pgxpool.Pool
}

// NewWatchlistStore creates a WatchlistStore backed by the given pool.
func NewWatchlistStore(pool *pgxpool.Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

// Add puts a stock on a team's watchlist. Adding the same stock twice
// returns ErrAlreadyExists.
func (s *WatchlistStore) Add(ctx context.Context, teamID, stockID string) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO watchlist (team_id, stock_id)
		VALUES ($1, $2)
		ON CONFLICT (team_id, stock_id) DO NOTHING`, teamID, stockID)
	if err != nil {
		return fmt.Errorf("postgres: watchlist add %s/%s: %w", teamID, stockID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Remove takes a stock off a team's watchlist.
func (s *WatchlistStore) Remove(ctx context.Context, teamID, stockID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM watchlist WHERE team_id = $1 AND stock_id = $2`, teamID, stockID)
	if err != nil {
		return fmt.Errorf("postgres: watchlist remove %s/%s: %w", teamID, stockID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListStocks returns the watched stocks of a team ordered by ticker.
func (s *WatchlistStore) ListStocks(ctx context.Context, teamID string) ([]domain.Stock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.ticker, s.current_price, s.updated_at
		FROM watchlist w
		JOIN stocks s ON s.id = w.stock_id
		WHERE w.team_id = $1
		ORDER BY s.ticker`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: watchlist for %s: %w", teamID, err)
	}
	defer rows.Close()

	stocks, err := scanStockRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan watchlist rows: %w", err)
	}
	return stocks, nil
}

// Compile-time interface check.
var _ domain.WatchlistStore = (*WatchlistStore)(nil)
