package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// Cache bundles in-process implementations of the cache and lock interfaces.
// It mirrors what the redis package provides in production.
type Cache struct {
	mu     sync.Mutex
	quotes map[string]quote
	board  map[string]decimal.Decimal
	locks  map[string]bool
}

type quote struct {
	price decimal.Decimal
	ts    time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		quotes: make(map[string]quote),
		board:  make(map[string]decimal.Decimal),
		locks:  make(map[string]bool),
	}
}

// SetPrice stores a quote for a ticker.
func (c *Cache) SetPrice(_ context.Context, ticker string, price decimal.Decimal, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[ticker] = quote{price: price, ts: ts}
	return nil
}

// GetPrice returns the quote for a ticker, or ErrNotFound.
func (c *Cache) GetPrice(_ context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[ticker]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return q.price, q.ts, nil
}

// GetPrices returns quotes for the given tickers, omitting misses.
func (c *Cache) GetPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		if q, ok := c.quotes[t]; ok {
			result[t] = q.price
		}
	}
	return result, nil
}

// SetValue records a team's portfolio value on the leaderboard.
func (c *Cache) SetValue(_ context.Context, teamID string, value decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board[teamID] = value
	return nil
}

// Top returns the n highest-valued team IDs, best first.
func (c *Cache) Top(_ context.Context, n int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.board))
	for id := range c.board {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		vi, vj := c.board[ids[i]], c.board[ids[j]]
		if !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		return ids[i] < ids[j]
	})

	if int64(len(ids)) > n {
		ids = ids[:n]
	}
	return ids, nil
}

// Clear drops the leaderboard.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = make(map[string]decimal.Decimal)
	return nil
}

// Acquire obtains an in-process lock or returns ErrLockHeld. The TTL is
// ignored; locks live until released.
func (c *Cache) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] {
		return nil, domain.ErrLockHeld
	}
	c.locks[key] = true

	released := false
	release := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(c.locks, key)
	}
	return release, nil
}

// Compile-time interface checks.
var (
	_ domain.PriceCache       = (*Cache)(nil)
	_ domain.LeaderboardCache = (*Cache)(nil)
	_ domain.LockManager      = (*Cache)(nil)
)
