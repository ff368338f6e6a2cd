package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// StockStore implements domain.StockStore using PostgreSQL.
type StockStore struct {
	pool *pgxpool.Pool
}

// NewStockStore creates a StockStore backed by the given connection pool.
func NewStockStore(pool *pgxpool.Pool) *StockStore {
	return &StockStore{pool: pool}
}

const stockSelectCols = `id, name, ticker, current_price, updated_at`

func scanStockRow(row pgx.Row) (domain.Stock, error) {
	var s domain.Stock
	err := row.Scan(&s.ID, &s.Name, &s.Ticker, &s.CurrentPrice, &s.UpdatedAt)
	if err != nil {
		return domain.Stock{}, err
	}
	return s, nil
}

func scanStockRows(rows pgx.Rows) ([]domain.Stock, error) {
	var stocks []domain.Stock
	for rows.Next() {
		var s domain.Stock
		if err := rows.Scan(&s.ID, &s.Name, &s.Ticker, &s.CurrentPrice, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// Upsert inserts a stock or updates its name on ticker conflict. The price
// is intentionally left alone on conflict; prices change only via
// UpdatePrice.
func (s *StockStore) Upsert(ctx context.Context, stock domain.Stock) error {
	const query = `
		INSERT INTO stocks (id, name, ticker, current_price, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (ticker) DO UPDATE SET name = EXCLUDED.name`

	_, err := s.pool.Exec(ctx, query, stock.ID, stock.Name, stock.Ticker, stock.CurrentPrice)
	if err != nil {
		return fmt.Errorf("postgres: upsert stock %s: %w", stock.Ticker, err)
	}
	return nil
}

// GetByID retrieves a single stock by its ID.
func (s *StockStore) GetByID(ctx context.Context, id string) (domain.Stock, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stockSelectCols+` FROM stocks WHERE id = $1`, id)

	stock, err := scanStockRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stock{}, domain.ErrNotFound
		}
		return domain.Stock{}, fmt.Errorf("postgres: get stock %s: %w", id, err)
	}
	return stock, nil
}

// GetByTicker retrieves a single stock by its ticker symbol.
func (s *StockStore) GetByTicker(ctx context.Context, ticker string) (domain.Stock, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stockSelectCols+` FROM stocks WHERE ticker = $1`, ticker)

	stock, err := scanStockRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stock{}, domain.ErrNotFound
		}
		return domain.Stock{}, fmt.Errorf("postgres: get stock by ticker %s: %w", ticker, err)
	}
	return stock, nil
}

// Search returns stocks matching the query by name or ticker, optionally
// restricted to listed (price > 0) stocks.
func (s *StockStore) Search(ctx context.Context, query string, listedOnly bool) ([]domain.Stock, error) {
	sql := `SELECT ` + stockSelectCols + ` FROM stocks
		WHERE (name ILIKE '%' || $1 || '%' OR ticker ILIKE '%' || $1 || '%')`
	if listedOnly {
		sql += ` AND current_price > 0`
	}
	sql += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, sql, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: search stocks: %w", err)
	}
	defer rows.Close()

	stocks, err := scanStockRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan stock search: %w", err)
	}
	return stocks, nil
}

// List returns the whole catalog ordered by ticker.
func (s *StockStore) List(ctx context.Context) ([]domain.Stock, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stockSelectCols+` FROM stocks ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stocks: %w", err)
	}
	defer rows.Close()

	stocks, err := scanStockRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan stock list: %w", err)
	}
	return stocks, nil
}

// Count returns the number of stocks in the catalog.
func (s *StockStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stocks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count stocks: %w", err)
	}
	return count, nil
}

// UpdatePrice sets the current price of a stock.
func (s *StockStore) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stocks SET current_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price)
	if err != nil {
		return fmt.Errorf("postgres: update price %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll clears the catalog. Holdings and history series cascade.
func (s *StockStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM stocks`); err != nil {
		return fmt.Errorf("postgres: delete stocks: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StockStore = (*StockStore)(nil)
