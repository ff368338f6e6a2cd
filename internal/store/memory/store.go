// Package memory implements the domain store and ledger interfaces with
// in-process maps. It backs the dev mode and the test suites; the postgres
// package is the production implementation.
package memory

import (
	"sync"

	"github.com/simbroker/simbroker/internal/domain"
)

// Store is the shared data container. Interface implementations are obtained
// through the view accessors (Stocks, Teams, ...) which all operate on the
// same underlying maps. A single RWMutex guards the maps; per-team mutexes
// serialize trade units the way row locks do in postgres.
type Store struct {
	mu           sync.RWMutex
	stocks       map[string]domain.Stock
	histories    map[string]domain.HistorySeries // stockID + "/" + series name
	teams        map[string]domain.Team
	members      map[string]domain.Member
	holdings     map[string]domain.Holding // teamID + "/" + stockID
	transactions map[string]domain.Transaction
	watchlist    map[string]bool // teamID + "/" + stockID

	lockMu    sync.Mutex
	teamLocks map[string]*sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		stocks:       make(map[string]domain.Stock),
		histories:    make(map[string]domain.HistorySeries),
		teams:        make(map[string]domain.Team),
		members:      make(map[string]domain.Member),
		holdings:     make(map[string]domain.Holding),
		transactions: make(map[string]domain.Transaction),
		watchlist:    make(map[string]bool),
		teamLocks:    make(map[string]*sync.Mutex),
	}
}

// Stocks returns the StockStore view.
func (s *Store) Stocks() domain.StockStore { return &stockStore{s} }

// Histories returns the HistoryStore view.
func (s *Store) Histories() domain.HistoryStore { return &historyStore{s} }

// Teams returns the TeamStore view.
func (s *Store) Teams() domain.TeamStore { return &teamStore{s} }

// Holdings returns the HoldingStore view.
func (s *Store) Holdings() domain.HoldingStore { return &holdingStore{s} }

// Transactions returns the TransactionStore view.
func (s *Store) Transactions() domain.TransactionStore { return &transactionStore{s} }

// Watchlist returns the WatchlistStore view.
func (s *Store) Watchlist() domain.WatchlistStore { return &watchlistStore{s} }

// Ledger returns the Ledger view.
func (s *Store) Ledger() domain.Ledger { return &ledger{s} }

func holdingKey(teamID, stockID string) string {
	return teamID + "/" + stockID
}

// teamLock returns the mutex serializing trade units for the given team,
// creating it on first use.
func (s *Store) teamLock(teamID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.teamLocks[teamID]
	if !ok {
		mu = &sync.Mutex{}
		s.teamLocks[teamID] = mu
	}
	return mu
}
