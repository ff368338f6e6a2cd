package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// checkViolation is the PostgreSQL error code for check-constraint breaks.
// The holdings table forbids negative amounts, so hitting this inside a trade
// unit means the in-process validation and the database disagree.
const checkViolation = "23514"

// Ledger implements domain.Ledger on top of PostgreSQL transactions. Begin
// locks the team row with SELECT ... FOR UPDATE, which serializes all trade
// units for the same team across every process sharing the database.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Begin opens a database transaction and takes the row lock on the team.
// The lock is held until Commit or Rollback.
func (l *Ledger) Begin(ctx context.Context, teamID string) (domain.TradeUnit, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin trade unit: %w", err)
	}

	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&id)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: lock team %s: %w", teamID, err)
	}

	return &tradeUnit{tx: tx, teamID: teamID}, nil
}

type tradeUnit struct {
	tx     pgx.Tx
	teamID string
	done   bool
}

func (u *tradeUnit) Team(ctx context.Context) (domain.Team, error) {
	row := u.tx.QueryRow(ctx,
		`SELECT `+teamSelectCols+` FROM teams WHERE id = $1`, u.teamID)

	team, err := scanTeamRow(row)
	if err != nil {
		return domain.Team{}, fmt.Errorf("postgres: read locked team: %w", err)
	}
	return team, nil
}

func (u *tradeUnit) Holding(ctx context.Context, stockID string) (domain.Holding, error) {
	var h domain.Holding
	err := u.tx.QueryRow(ctx, `
		SELECT id, team_id, stock_id, amount FROM holdings
		WHERE team_id = $1 AND stock_id = $2`, u.teamID, stockID,
	).Scan(&h.ID, &h.TeamID, &h.StockID, &h.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Holding{}, domain.ErrNoHolding
		}
		return domain.Holding{}, fmt.Errorf("postgres: read holding: %w", err)
	}
	return h, nil
}

func (u *tradeUnit) AdjustBalance(ctx context.Context, delta decimal.Decimal) error {
	_, err := u.tx.Exec(ctx,
		`UPDATE teams SET balance = balance + $2 WHERE id = $1`, u.teamID, delta)
	if err != nil {
		return fmt.Errorf("postgres: adjust balance: %w", err)
	}
	return nil
}

func (u *tradeUnit) AdjustHolding(ctx context.Context, stockID string, delta int64) error {
	var amount int64
	err := u.tx.QueryRow(ctx, `
		INSERT INTO holdings (id, team_id, stock_id, amount)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (team_id, stock_id)
		DO UPDATE SET amount = holdings.amount + EXCLUDED.amount
		RETURNING amount`, u.teamID, stockID, delta,
	).Scan(&amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
			return domain.ErrLedgerCorrupt
		}
		return fmt.Errorf("postgres: adjust holding: %w", err)
	}

	if amount == 0 {
		_, err = u.tx.Exec(ctx, `
			DELETE FROM holdings WHERE team_id = $1 AND stock_id = $2`,
			u.teamID, stockID)
		if err != nil {
			return fmt.Errorf("postgres: remove empty holding: %w", err)
		}
	}
	return nil
}

func (u *tradeUnit) SetTransactionStatus(ctx context.Context, txnID string, status domain.TransactionStatus, note string) error {
	tag, err := u.tx.Exec(ctx, `
		UPDATE transactions SET status = $2, note = $3
		WHERE id = $1 AND status = 'open'`, txnID, string(status), note)
	if err != nil {
		return fmt.Errorf("postgres: set transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (u *tradeUnit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit trade unit: %w", err)
	}
	return nil
}

func (u *tradeUnit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback trade unit: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.Ledger    = (*Ledger)(nil)
	_ domain.TradeUnit = (*tradeUnit)(nil)
)
