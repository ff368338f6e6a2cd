package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
	"github.com/simbroker/simbroker/internal/executor"
	"github.com/simbroker/simbroker/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// env bundles the in-memory backing for service tests.
type env struct {
	store *memory.Store
	cache *memory.Cache
	exec  *executor.Executor
}

func newEnv() *env {
	store := memory.New()
	return &env{
		store: store,
		cache: memory.NewCache(),
		exec:  executor.New(store.Ledger(), nil, testLogger()),
	}
}

func (e *env) seedStock(t *testing.T, ticker string, price float64) domain.Stock {
	t.Helper()
	stock := domain.Stock{
		ID:           uuid.New().String(),
		Name:         ticker,
		Ticker:       ticker,
		CurrentPrice: decimal.NewFromFloat(price),
	}
	if err := e.store.Stocks().Upsert(context.Background(), stock); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return stock
}

func (e *env) seedTeam(t *testing.T, name string, balance float64) domain.Team {
	t.Helper()
	team := domain.Team{
		ID:      uuid.New().String(),
		Name:    name,
		Code:    domain.NewJoinCode(),
		Balance: decimal.NewFromFloat(balance),
	}
	if err := e.store.Teams().Create(context.Background(), team); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return team
}

func (e *env) seedMember(t *testing.T, teamID string) {
	t.Helper()
	member := domain.Member{
		ID:     uuid.New().String(),
		TeamID: teamID,
		Name:   "player",
		Email:  uuid.New().String() + "@example.com",
	}
	if err := e.store.Teams().AddMember(context.Background(), member); err != nil {
		t.Fatalf("seed member: %v", err)
	}
}
