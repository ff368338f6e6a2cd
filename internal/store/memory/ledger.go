package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// ledger implements domain.Ledger with a mutex per team. Begin blocks until
// the team's mutex is free, mirroring the blocking row lock of the postgres
// implementation.
type ledger struct{ s *Store }

func (l *ledger) Begin(ctx context.Context, teamID string) (domain.TradeUnit, error) {
	l.s.mu.RLock()
	_, ok := l.s.teams[teamID]
	l.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	mu := l.s.teamLock(teamID)
	mu.Lock()

	return &tradeUnit{
		s:             l.s,
		teamID:        teamID,
		release:       mu.Unlock,
		holdingDeltas: make(map[string]int64),
	}, nil
}

// tradeUnit stages mutations and applies them atomically on Commit. The
// per-team mutex is held from Begin to Commit/Rollback, so reads inside the
// unit observe a state no concurrent trade can change underneath it.
type tradeUnit struct {
	s       *Store
	teamID  string
	release func()
	done    bool

	balanceDelta  decimal.Decimal
	holdingDeltas map[string]int64
	statusTxnID   string
	status        domain.TransactionStatus
	statusNote    string
}

func (u *tradeUnit) Team(ctx context.Context) (domain.Team, error) {
	if u.done {
		return domain.Team{}, fmt.Errorf("memory: trade unit already finished")
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	team, ok := u.s.teams[u.teamID]
	if !ok {
		return domain.Team{}, domain.ErrNotFound
	}
	team.Balance = team.Balance.Add(u.balanceDelta)
	return team, nil
}

func (u *tradeUnit) Holding(ctx context.Context, stockID string) (domain.Holding, error) {
	if u.done {
		return domain.Holding{}, fmt.Errorf("memory: trade unit already finished")
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	holding, ok := u.s.holdings[holdingKey(u.teamID, stockID)]
	delta := u.holdingDeltas[stockID]
	if !ok {
		if delta == 0 {
			return domain.Holding{}, domain.ErrNoHolding
		}
		return domain.Holding{TeamID: u.teamID, StockID: stockID, Amount: delta}, nil
	}
	holding.Amount += delta
	return holding, nil
}

func (u *tradeUnit) AdjustBalance(ctx context.Context, delta decimal.Decimal) error {
	if u.done {
		return fmt.Errorf("memory: trade unit already finished")
	}
	u.balanceDelta = u.balanceDelta.Add(delta)
	return nil
}

func (u *tradeUnit) AdjustHolding(ctx context.Context, stockID string, delta int64) error {
	if u.done {
		return fmt.Errorf("memory: trade unit already finished")
	}
	u.s.mu.RLock()
	current := u.s.holdings[holdingKey(u.teamID, stockID)].Amount
	u.s.mu.RUnlock()

	if current+u.holdingDeltas[stockID]+delta < 0 {
		return fmt.Errorf("memory: holding %s/%s would go negative: %w",
			u.teamID, stockID, domain.ErrLedgerCorrupt)
	}
	u.holdingDeltas[stockID] += delta
	return nil
}

func (u *tradeUnit) SetTransactionStatus(ctx context.Context, txnID string, status domain.TransactionStatus, note string) error {
	if u.done {
		return fmt.Errorf("memory: trade unit already finished")
	}
	u.s.mu.RLock()
	txn, ok := u.s.transactions[txnID]
	u.s.mu.RUnlock()
	// Only open transactions may transition. A stale copy of an already
	// terminal transaction must not re-apply its mutations.
	if !ok || txn.Status != domain.TransactionOpen {
		return domain.ErrNotFound
	}
	u.statusTxnID = txnID
	u.status = status
	u.statusNote = note
	return nil
}

func (u *tradeUnit) Commit(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("memory: trade unit already finished")
	}
	u.s.mu.Lock()

	team := u.s.teams[u.teamID]
	team.Balance = team.Balance.Add(u.balanceDelta)
	u.s.teams[u.teamID] = team

	for stockID, delta := range u.holdingDeltas {
		key := holdingKey(u.teamID, stockID)
		holding, ok := u.s.holdings[key]
		if !ok {
			holding = domain.Holding{
				ID:      uuid.New().String(),
				TeamID:  u.teamID,
				StockID: stockID,
			}
		}
		holding.Amount += delta
		if holding.Amount < 0 {
			u.s.mu.Unlock()
			u.finish()
			return fmt.Errorf("memory: holding %s went negative on commit: %w",
				key, domain.ErrLedgerCorrupt)
		}
		if holding.Amount == 0 {
			delete(u.s.holdings, key)
		} else {
			u.s.holdings[key] = holding
		}
	}

	if u.statusTxnID != "" {
		txn := u.s.transactions[u.statusTxnID]
		txn.Status = u.status
		txn.Note = u.statusNote
		u.s.transactions[u.statusTxnID] = txn
	}

	u.s.mu.Unlock()
	u.finish()
	return nil
}

func (u *tradeUnit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *tradeUnit) finish() {
	u.done = true
	u.release()
}

// Compile-time interface checks.
var (
	_ domain.Ledger    = (*ledger)(nil)
	_ domain.TradeUnit = (*tradeUnit)(nil)
)
