package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestSubmitOrderBuySettles(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 10000)
	stock := e.seedStock(t, "SAP.DE", 100)

	svc := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())

	txn, err := svc.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionBuy, 10)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if txn.Status != domain.TransactionClosed {
		t.Fatalf("status = %s, note = %q", txn.Status, txn.Note)
	}
	if !txn.Price.Equal(stock.CurrentPrice) {
		t.Errorf("price snapshot = %s, want %s", txn.Price, stock.CurrentPrice)
	}
	// 100 * 10 * 0.001 = 1, below the floor.
	if !txn.Fee.Equal(decimal.NewFromInt(15)) {
		t.Errorf("fee = %s, want minimum 15", txn.Fee)
	}

	got, err := e.store.Teams().GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	// 10000 - (1000 + 15)
	if want := decimal.NewFromInt(8985); !got.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", got.Balance, want)
	}

	holding, err := e.store.Holdings().Get(ctx, team.ID, stock.ID)
	if err != nil {
		t.Fatalf("holding: %v", err)
	}
	if holding.Amount != 10 {
		t.Errorf("holding = %d, want 10", holding.Amount)
	}
}

func TestSubmitOrderRejectionIsTerminalNotError(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 50)
	stock := e.seedStock(t, "SAP.DE", 100)

	svc := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())

	txn, err := svc.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionBuy, 10)
	if err != nil {
		t.Fatalf("a rejected trade must not surface an error: %v", err)
	}
	if txn.Status != domain.TransactionError {
		t.Fatalf("status = %s", txn.Status)
	}
	if !strings.Contains(txn.Note, "insufficient funds") {
		t.Errorf("note = %q", txn.Note)
	}

	// The record is persisted in its terminal state.
	stored, err := e.store.Transactions().GetByID(ctx, txn.ID)
	if err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if stored.Status != domain.TransactionError {
		t.Errorf("stored status = %s", stored.Status)
	}

	got, _ := e.store.Teams().GetByID(ctx, team.ID)
	if !got.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance changed on rejected trade: %s", got.Balance)
	}
}

func TestSubmitOrderInputValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 10000)
	listed := e.seedStock(t, "SAP.DE", 100)
	unlisted := e.seedStock(t, "GHOST.DE", 0)

	svc := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())

	tests := []struct {
		name    string
		stockID string
		typ     domain.TransactionType
		amount  int64
		want    error
	}{
		{"zero amount", listed.ID, domain.TransactionBuy, 0, domain.ErrInvalidAmount},
		{"negative amount", listed.ID, domain.TransactionSell, -5, domain.ErrInvalidAmount},
		{"bad type", listed.ID, domain.TransactionType("short"), 1, domain.ErrInvalidTransactionType},
		{"unlisted stock", unlisted.ID, domain.TransactionBuy, 1, domain.ErrStockNotListed},
		{"unknown stock", "nope", domain.TransactionBuy, 1, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitOrder(ctx, team.ID, tt.stockID, tt.typ, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	// None of the rejected submissions may leave a record behind.
	txns, err := svc.Transactions(ctx, team.ID, domain.ListOpts{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("invalid submissions persisted %d transactions", len(txns))
	}
}

func TestTransactionsNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 1000000)
	stock := e.seedStock(t, "SAP.DE", 10)

	svc := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())
	for i := 0; i < 5; i++ {
		if _, err := svc.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionBuy, 1); err != nil {
			t.Fatalf("order %d: %v", i, err)
		}
	}

	page, err := svc.Transactions(ctx, team.ID, domain.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].CreatedAt.Before(page[1].CreatedAt) {
		t.Error("expected newest-first ordering")
	}
}
