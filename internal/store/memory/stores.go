package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// ---------------------------------------------------------------------------
// StockStore
// ---------------------------------------------------------------------------

type stockStore struct{ s *Store }

func (v *stockStore) Upsert(ctx context.Context, stock domain.Stock) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if stock.ID == "" {
		stock.ID = uuid.New().String()
	}
	v.s.stocks[stock.ID] = stock
	return nil
}

func (v *stockStore) GetByID(ctx context.Context, id string) (domain.Stock, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	stock, ok := v.s.stocks[id]
	if !ok {
		return domain.Stock{}, domain.ErrNotFound
	}
	return stock, nil
}

func (v *stockStore) GetByTicker(ctx context.Context, ticker string) (domain.Stock, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, stock := range v.s.stocks {
		if stock.Ticker == ticker {
			return stock, nil
		}
	}
	return domain.Stock{}, domain.ErrNotFound
}

func (v *stockStore) Search(ctx context.Context, query string, listedOnly bool) ([]domain.Stock, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []domain.Stock
	for _, stock := range v.s.stocks {
		if listedOnly && !stock.Listed() {
			continue
		}
		if strings.Contains(strings.ToLower(stock.Name), q) ||
			strings.Contains(strings.ToLower(stock.Ticker), q) {
			out = append(out, stock)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *stockStore) List(ctx context.Context) ([]domain.Stock, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domain.Stock, 0, len(v.s.stocks))
	for _, stock := range v.s.stocks {
		out = append(out, stock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (v *stockStore) Count(ctx context.Context) (int64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return int64(len(v.s.stocks)), nil
}

func (v *stockStore) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	stock, ok := v.s.stocks[id]
	if !ok {
		return domain.ErrNotFound
	}
	stock.CurrentPrice = price
	stock.UpdatedAt = time.Now().UTC()
	v.s.stocks[id] = stock
	return nil
}

func (v *stockStore) DeleteAll(ctx context.Context) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.stocks = make(map[string]domain.Stock)
	return nil
}

// ---------------------------------------------------------------------------
// HistoryStore
// ---------------------------------------------------------------------------

type historyStore struct{ s *Store }

func (v *historyStore) Replace(ctx context.Context, series domain.HistorySeries) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if series.ID == "" {
		series.ID = uuid.New().String()
	}
	v.s.histories[series.StockID+"/"+series.Name] = series
	return nil
}

func (v *historyStore) ListByStock(ctx context.Context, stockID string) ([]domain.HistorySeries, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.HistorySeries
	for _, series := range v.s.histories {
		if series.StockID == stockID {
			out = append(out, series)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *historyStore) DeleteAll(ctx context.Context) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.histories = make(map[string]domain.HistorySeries)
	return nil
}

// ---------------------------------------------------------------------------
// TeamStore
// ---------------------------------------------------------------------------

type teamStore struct{ s *Store }

func (v *teamStore) Create(ctx context.Context, team domain.Team) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.teams {
		if existing.Code == team.Code {
			return domain.ErrAlreadyExists
		}
	}
	v.s.teams[team.ID] = team
	return nil
}

func (v *teamStore) GetByID(ctx context.Context, id string) (domain.Team, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	team, ok := v.s.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrNotFound
	}
	return team, nil
}

func (v *teamStore) GetByCode(ctx context.Context, code string) (domain.Team, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, team := range v.s.teams {
		if team.Code == code {
			return team, nil
		}
	}
	return domain.Team{}, domain.ErrNotFound
}

func (v *teamStore) List(ctx context.Context) ([]domain.Team, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domain.Team, 0, len(v.s.teams))
	for _, team := range v.s.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *teamStore) AddMember(ctx context.Context, member domain.Member) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.teams[member.TeamID]; !ok {
		return domain.ErrNotFound
	}
	v.s.members[member.ID] = member
	return nil
}

func (v *teamStore) MemberCounts(ctx context.Context) (map[string]int64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	counts := make(map[string]int64, len(v.s.teams))
	for _, member := range v.s.members {
		counts[member.TeamID]++
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// HoldingStore
// ---------------------------------------------------------------------------

type holdingStore struct{ s *Store }

func (v *holdingStore) Get(ctx context.Context, teamID, stockID string) (domain.Holding, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	holding, ok := v.s.holdings[holdingKey(teamID, stockID)]
	if !ok {
		return domain.Holding{}, domain.ErrNoHolding
	}
	return holding, nil
}

func (v *holdingStore) ListByTeam(ctx context.Context, teamID string) ([]domain.Holding, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Holding
	for _, holding := range v.s.holdings {
		if holding.TeamID == teamID {
			out = append(out, holding)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockID < out[j].StockID })
	return out, nil
}

// ---------------------------------------------------------------------------
// TransactionStore
// ---------------------------------------------------------------------------

type transactionStore struct{ s *Store }

func (v *transactionStore) Create(ctx context.Context, txn domain.Transaction) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.transactions[txn.ID]; ok {
		return domain.ErrAlreadyExists
	}
	v.s.transactions[txn.ID] = txn
	return nil
}

func (v *transactionStore) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	txn, ok := v.s.transactions[id]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return txn, nil
}

func (v *transactionStore) ListByTeam(ctx context.Context, teamID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Transaction
	for _, txn := range v.s.transactions {
		if txn.TeamID != teamID {
			continue
		}
		if opts.Since != nil && txn.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && txn.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (v *transactionStore) ListByTeamAndStock(ctx context.Context, teamID, stockID string) ([]domain.Transaction, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Transaction
	for _, txn := range v.s.transactions {
		if txn.TeamID == teamID && txn.StockID == stockID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *transactionStore) ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Transaction
	for _, txn := range v.s.transactions {
		if txn.Status.Terminal() && txn.CreatedAt.Before(before) {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// WatchlistStore
// ---------------------------------------------------------------------------

type watchlistStore struct{ s *Store }

func (v *watchlistStore) Add(ctx context.Context, teamID, stockID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := holdingKey(teamID, stockID)
	if v.s.watchlist[key] {
		return domain.ErrAlreadyExists
	}
	v.s.watchlist[key] = true
	return nil
}

func (v *watchlistStore) Remove(ctx context.Context, teamID, stockID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := holdingKey(teamID, stockID)
	if !v.s.watchlist[key] {
		return domain.ErrNotFound
	}
	delete(v.s.watchlist, key)
	return nil
}

func (v *watchlistStore) ListStocks(ctx context.Context, teamID string) ([]domain.Stock, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []domain.Stock
	prefix := teamID + "/"
	for key := range v.s.watchlist {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		stockID := strings.TrimPrefix(key, prefix)
		if stock, ok := v.s.stocks[stockID]; ok {
			out = append(out, stock)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Compile-time interface checks.
var (
	_ domain.StockStore       = (*stockStore)(nil)
	_ domain.HistoryStore     = (*historyStore)(nil)
	_ domain.TeamStore        = (*teamStore)(nil)
	_ domain.HoldingStore     = (*holdingStore)(nil)
	_ domain.TransactionStore = (*transactionStore)(nil)
	_ domain.WatchlistStore   = (*watchlistStore)(nil)
)
