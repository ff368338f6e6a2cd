package service

import (
	"context"
	"errors"
	"testing"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestWatchlistAddListRemove(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 1000)
	listed := e.seedStock(t, "SAP.DE", 100)
	unlisted := e.seedStock(t, "GHOST.DE", 0)

	svc := NewWatchlistService(e.store.Watchlist(), e.store.Stocks(), testLogger())

	if err := svc.Add(ctx, team.ID, listed.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Unlisted stocks can be watched; they just cannot be traded yet.
	if err := svc.Add(ctx, team.ID, unlisted.ID); err != nil {
		t.Fatalf("Add unlisted: %v", err)
	}
	if err := svc.Add(ctx, team.ID, listed.ID); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate add err = %v", err)
	}
	if err := svc.Add(ctx, team.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown stock err = %v", err)
	}

	stocks, err := svc.List(ctx, team.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("watchlist has %d stocks, want 2", len(stocks))
	}

	if err := svc.Remove(ctx, team.ID, listed.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(ctx, team.ID, listed.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}

	stocks, err = svc.List(ctx, team.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stocks) != 1 || stocks[0].ID != unlisted.ID {
		t.Errorf("watchlist after remove = %+v", stocks)
	}
}
