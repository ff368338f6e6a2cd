package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simbroker/simbroker/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL.
// Status transitions are not exposed here; they happen inside a ledger trade
// unit so they commit atomically with the balance and holding changes.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a TransactionStore backed by the given pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const txnSelectCols = `id, team_id, stock_id, type, amount, price, fee, status, note, created_at`

func scanTxnRows(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var typ, status string
		if err := rows.Scan(&t.ID, &t.TeamID, &t.StockID, &typ, &t.Amount,
			&t.Price, &t.Fee, &status, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.Status = domain.TransactionStatus(status)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Create inserts a new transaction record in its submitted state.
func (s *TransactionStore) Create(ctx context.Context, txn domain.Transaction) error {
	const query = `
		INSERT INTO transactions (id, team_id, stock_id, type, amount, price, fee, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		txn.ID, txn.TeamID, txn.StockID, string(txn.Type), txn.Amount,
		txn.Price, txn.Fee, string(txn.Status), txn.Note, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetByID retrieves a single transaction.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txnSelectCols+` FROM transactions WHERE id = $1`, id)

	var t domain.Transaction
	var typ, status string
	err := row.Scan(&t.ID, &t.TeamID, &t.StockID, &typ, &t.Amount,
		&t.Price, &t.Fee, &status, &t.Note, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("postgres: get transaction %s: %w", id, err)
	}
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	return t, nil
}

// ListByTeam returns a team's transactions, newest first, with pagination and
// optional time filtering.
func (s *TransactionStore) ListByTeam(ctx context.Context, teamID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	query := `SELECT ` + txnSelectCols + ` FROM transactions WHERE team_id = $1`
	args := []any{teamID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions for %s: %w", teamID, err)
	}
	defer rows.Close()

	txns, err := scanTxnRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transaction rows: %w", err)
	}
	return txns, nil
}

// ListByTeamAndStock returns a team's transactions for one stock, oldest
// first, for realized-profit calculations.
func (s *TransactionStore) ListByTeamAndStock(ctx context.Context, teamID, stockID string) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+txnSelectCols+` FROM transactions
		 WHERE team_id = $1 AND stock_id = $2 ORDER BY created_at`, teamID, stockID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions %s/%s: %w", teamID, stockID, err)
	}
	defer rows.Close()

	txns, err := scanTxnRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transaction rows: %w", err)
	}
	return txns, nil
}

// ListTerminalBefore returns closed and errored transactions created before
// the cutoff, oldest first, for archival.
func (s *TransactionStore) ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+txnSelectCols+` FROM transactions
		 WHERE status IN ('closed', 'error') AND created_at < $1
		 ORDER BY created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal transactions: %w", err)
	}
	defer rows.Close()

	txns, err := scanTxnRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transaction rows: %w", err)
	}
	return txns, nil
}

// Compile-time interface check.
var _ domain.TransactionStore = (*TransactionStore)(nil)
