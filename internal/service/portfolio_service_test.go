package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestPortfolioValueSumsHoldingsAtCurrentPrices(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 1000)
	sap := e.seedStock(t, "SAP.DE", 100)
	bmw := e.seedStock(t, "BMW.DE", 80.5)

	mustAdjustHolding(t, e, team.ID, sap.ID, 3)
	mustAdjustHolding(t, e, team.ID, bmw.ID, 2)

	// The quote cache is empty, so every price comes from the store rows.
	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), e.cache, e.cache, testLogger())

	value, err := svc.PortfolioValue(ctx, team.ID)
	if err != nil {
		t.Fatalf("PortfolioValue: %v", err)
	}
	// 1000 + 3*100 + 2*80.5
	if want := decimal.NewFromFloat(1461); !value.Equal(want) {
		t.Errorf("value = %s, want %s", value, want)
	}

	// The valuation lands on the leaderboard as a side effect.
	top, err := e.cache.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 || top[0] != team.ID {
		t.Errorf("leaderboard = %+v", top)
	}
}

func TestRankCountsStrictlyGreaterEligibleTeams(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	rich := e.seedTeam(t, "rich", 3000)
	mid := e.seedTeam(t, "mid", 2000)
	tied := e.seedTeam(t, "tied", 2000)
	poor := e.seedTeam(t, "poor", 1000)
	for _, team := range []domain.Team{rich, mid, tied, poor} {
		e.seedMember(t, team.ID)
	}

	// A memberless whale must not push anyone down.
	e.seedTeam(t, "whale", 999999)

	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), nil, nil, testLogger())

	tests := []struct {
		teamID string
		want   int
	}{
		{rich.ID, 1},
		{mid.ID, 2},
		{tied.ID, 2},
		{poor.ID, 4},
	}
	for _, tt := range tests {
		rank, err := svc.Rank(ctx, tt.teamID)
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}
		if rank != tt.want {
			t.Errorf("rank(%s) = %d, want %d", tt.teamID, rank, tt.want)
		}
	}
}

func TestRankingPaginatesAndSkipsIneligible(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	balances := []float64{500, 400, 300, 200, 100}
	for i, b := range balances {
		team := e.seedTeam(t, "team-"+string(rune('a'+i)), b)
		e.seedMember(t, team.ID)
	}

	// Sentinel and memberless teams stay off the board entirely.
	admin := e.seedTeam(t, "admin", 900)
	e.seedMember(t, admin.ID)
	e.seedTeam(t, "ghost", 800)

	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), e.cache, e.cache, testLogger())

	page, err := svc.Ranking(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("total = %d, want 5", page.Total)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(page.Entries))
	}
	if page.Entries[0].Rank != 3 || page.Entries[1].Rank != 4 {
		t.Errorf("ranks = %d, %d", page.Entries[0].Rank, page.Entries[1].Rank)
	}
	if !page.Entries[0].Value.Equal(decimal.NewFromInt(300)) {
		t.Errorf("page 2 starts at %s, want 300", page.Entries[0].Value)
	}

	// Pages past the end come back empty, not erroring.
	tail, err := svc.Ranking(ctx, 9, 2)
	if err != nil {
		t.Fatalf("Ranking past end: %v", err)
	}
	if len(tail.Entries) != 0 || tail.Total != 5 {
		t.Errorf("tail = %+v", tail)
	}
}

// The quote cache is the fresher source during a refresh cycle: a cached
// quote beats the stored row, and tickers the cache misses fall back to it.
func TestPortfolioValuePrefersCachedQuotes(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 1000)
	sap := e.seedStock(t, "SAP.DE", 100)
	bmw := e.seedStock(t, "BMW.DE", 80)

	mustAdjustHolding(t, e, team.ID, sap.ID, 3)
	mustAdjustHolding(t, e, team.ID, bmw.ID, 2)

	// Only SAP has a cached quote; BMW is valued off the store row.
	if err := e.cache.SetPrice(ctx, "SAP.DE", decimal.NewFromInt(120), time.Now().UTC()); err != nil {
		t.Fatalf("set price: %v", err)
	}

	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), e.cache, nil, testLogger())

	value, err := svc.PortfolioValue(ctx, team.ID)
	if err != nil {
		t.Fatalf("PortfolioValue: %v", err)
	}
	// 1000 + 3*120 (cached) + 2*80 (store)
	if want := decimal.NewFromInt(1520); !value.Equal(want) {
		t.Errorf("value = %s, want %s", value, want)
	}
}

func TestLeadersServedFromWarmBoard(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	first := e.seedTeam(t, "first", 3000)
	second := e.seedTeam(t, "second", 2000)

	if err := e.cache.SetValue(ctx, first.ID, decimal.NewFromInt(3000)); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if err := e.cache.SetValue(ctx, second.ID, decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("set value: %v", err)
	}
	// A stale board entry for a team that no longer exists is skipped.
	if err := e.cache.SetValue(ctx, "gone", decimal.NewFromInt(9999)); err != nil {
		t.Fatalf("set value: %v", err)
	}

	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), e.cache, e.cache, testLogger())

	teams, err := svc.Leaders(ctx, 10)
	if err != nil {
		t.Fatalf("Leaders: %v", err)
	}
	if len(teams) != 2 || teams[0].ID != first.ID || teams[1].ID != second.ID {
		t.Errorf("leaders = %+v", teams)
	}
}

func TestLeadersFallsBackToStoresWhenBoardCold(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	rich := e.seedTeam(t, "rich", 3000)
	poor := e.seedTeam(t, "poor", 1000)
	e.seedMember(t, rich.ID)
	e.seedMember(t, poor.ID)

	svc := NewPortfolioService(e.store.Teams(), e.store.Stocks(), e.store.Holdings(), e.cache, e.cache, testLogger())

	teams, err := svc.Leaders(ctx, 10)
	if err != nil {
		t.Fatalf("Leaders: %v", err)
	}
	if len(teams) != 2 || teams[0].ID != rich.ID || teams[1].ID != poor.ID {
		t.Errorf("leaders = %+v", teams)
	}
}

// mustAdjustHolding seeds a holding through the ledger, the only write path.
func mustAdjustHolding(t *testing.T, e *env, teamID, stockID string, delta int64) {
	t.Helper()
	ctx := context.Background()
	unit, err := e.store.Ledger().Begin(ctx, teamID)
	if err != nil {
		t.Fatalf("ledger begin: %v", err)
	}
	defer unit.Rollback(ctx)
	if err := unit.AdjustHolding(ctx, stockID, delta); err != nil {
		t.Fatalf("adjust holding: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
