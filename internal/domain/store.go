package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// StockStore persists the stock catalog. Prices are written only through
// UpdatePrice, and only by the price updater.
type StockStore interface {
	Upsert(ctx context.Context, stock Stock) error
	GetByID(ctx context.Context, id string) (Stock, error)
	GetByTicker(ctx context.Context, ticker string) (Stock, error)
	// Search returns stocks whose name or ticker contains the query,
	// restricted to listed stocks when listedOnly is set.
	Search(ctx context.Context, query string, listedOnly bool) ([]Stock, error)
	List(ctx context.Context) ([]Stock, error)
	Count(ctx context.Context) (int64, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error
	// DeleteAll clears the catalog; used only by the idempotent reseed.
	DeleteAll(ctx context.Context) error
}

// HistoryStore persists closing-price series. Replace performs the
// wholesale overwrite keyed by (stock, series name).
type HistoryStore interface {
	Replace(ctx context.Context, series HistorySeries) error
	ListByStock(ctx context.Context, stockID string) ([]HistorySeries, error)
	DeleteAll(ctx context.Context) error
}

// TeamStore persists teams and their members.
type TeamStore interface {
	Create(ctx context.Context, team Team) error
	GetByID(ctx context.Context, id string) (Team, error)
	GetByCode(ctx context.Context, code string) (Team, error)
	List(ctx context.Context) ([]Team, error)
	AddMember(ctx context.Context, member Member) error
	// MemberCounts returns the member count per team ID for ranking
	// eligibility checks.
	MemberCounts(ctx context.Context) (map[string]int64, error)
}

// HoldingStore provides read access to holdings. All writes go through the
// Ledger so that no code path can bypass the executor's locking.
type HoldingStore interface {
	Get(ctx context.Context, teamID, stockID string) (Holding, error)
	ListByTeam(ctx context.Context, teamID string) ([]Holding, error)
}

// TransactionStore persists trade records. Status transitions happen inside
// a ledger trade unit, not here.
type TransactionStore interface {
	Create(ctx context.Context, txn Transaction) error
	GetByID(ctx context.Context, id string) (Transaction, error)
	ListByTeam(ctx context.Context, teamID string, opts ListOpts) ([]Transaction, error)
	ListByTeamAndStock(ctx context.Context, teamID, stockID string) ([]Transaction, error)
	// ListTerminalBefore returns closed and errored transactions created
	// strictly before the cutoff, for archival.
	ListTerminalBefore(ctx context.Context, before time.Time) ([]Transaction, error)
}

// WatchlistStore persists per-team stock watchlists.
type WatchlistStore interface {
	Add(ctx context.Context, teamID, stockID string) error
	Remove(ctx context.Context, teamID, stockID string) error
	ListStocks(ctx context.Context, teamID string) ([]Stock, error)
}

// TradeUnit is one atomic unit of work against a single team's financial
// state. Begin acquires an exclusive per-team lock that is held until Commit
// or Rollback, so no two trade units for the same team ever interleave their
// read-check-write sequences.
type TradeUnit interface {
	// Team returns the locked team row.
	Team(ctx context.Context) (Team, error)
	// Holding returns the team's holding for the stock, or ErrNoHolding.
	Holding(ctx context.Context, stockID string) (Holding, error)
	// AdjustBalance adds delta (which may be negative) to the team balance.
	AdjustBalance(ctx context.Context, delta decimal.Decimal) error
	// AdjustHolding adds delta shares to the (team, stock) holding, creating
	// it on first buy and deleting it when the amount reaches exactly zero.
	// A resulting negative amount returns ErrLedgerCorrupt.
	AdjustHolding(ctx context.Context, stockID string, delta int64) error
	// SetTransactionStatus moves a transaction to a terminal state and
	// records the reason.
	SetTransactionStatus(ctx context.Context, txnID string, status TransactionStatus, note string) error
	Commit(ctx context.Context) error
	// Rollback discards the unit. Safe to call after Commit as a no-op.
	Rollback(ctx context.Context) error
}

// Ledger hands out trade units. It is the only write path to team balances
// and holdings.
type Ledger interface {
	Begin(ctx context.Context, teamID string) (TradeUnit, error)
}

// PriceCache caches current prices keyed by ticker for fast valuation reads.
type PriceCache interface {
	SetPrice(ctx context.Context, ticker string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error)
	// GetPrices returns prices for the given tickers; tickers without a
	// cached price are omitted from the result.
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// LeaderboardCache maintains the portfolio-value leaderboard. It is a cache:
// ranking reads fall back to the stores when it is empty.
type LeaderboardCache interface {
	SetValue(ctx context.Context, teamID string, value decimal.Decimal) error
	Top(ctx context.Context, n int64) ([]string, error)
	Clear(ctx context.Context) error
}

// LockManager provides deployment-wide locks, used to guarantee a single
// running price updater.
type LockManager interface {
	// Acquire obtains the lock or returns ErrLockHeld. The returned release
	// function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves terminal transactions older than a cutoff to cold storage.
type Archiver interface {
	ArchiveTransactions(ctx context.Context, before time.Time) (int64, error)
}
