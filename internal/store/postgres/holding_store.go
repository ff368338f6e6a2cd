package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simbroker/simbroker/internal/domain"
)

// HoldingStore implements the read side of domain.HoldingStore. Holdings are
// written exclusively through the Ledger so no code path can bypass the
// executor's locking.
type HoldingStore struct {
	pool *pgxpool.Pool
}

// NewHoldingStore creates a HoldingStore backed by the given connection pool.
func NewHoldingStore(pool *pgxpool.Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Get returns the holding for (team, stock), or ErrNoHolding when the team
// owns no shares of the stock.
func (s *HoldingStore) Get(ctx context.Context, teamID, stockID string) (domain.Holding, error) {
	var h domain.Holding
	err := s.pool.QueryRow(ctx, `
		SELECT id, team_id, stock_id, amount FROM holdings
		WHERE team_id = $1 AND stock_id = $2`, teamID, stockID,
	).Scan(&h.ID, &h.TeamID, &h.StockID, &h.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Holding{}, domain.ErrNoHolding
		}
		return domain.Holding{}, fmt.Errorf("postgres: get holding %s/%s: %w", teamID, stockID, err)
	}
	return h, nil
}

// ListByTeam returns all holdings of a team.
func (s *HoldingStore) ListByTeam(ctx context.Context, teamID string) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, team_id, stock_id, amount FROM holdings
		WHERE team_id = $1 ORDER BY stock_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list holdings for %s: %w", teamID, err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.ID, &h.TeamID, &h.StockID, &h.Amount); err != nil {
			return nil, fmt.Errorf("postgres: scan holding row: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate holding rows: %w", err)
	}
	return holdings, nil
}

// Compile-time interface check.
var _ domain.HoldingStore = (*HoldingStore)(nil)
