package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

func TestSearchOffersListedStocksOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedStock(t, "SAP.DE", 100)
	e.seedStock(t, "SIE.DE", 150)
	e.seedStock(t, "SHL.DE", 0) // awaiting first quote

	svc := NewStockService(e.store.Stocks(), e.store.Histories(), e.store.Holdings(), e.store.Transactions(), nil, testLogger())

	stocks, err := svc.Search(ctx, "S")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("got %d stocks, want 2", len(stocks))
	}
	for _, st := range stocks {
		if st.Ticker == "SHL.DE" {
			t.Error("unlisted stock offered in search")
		}
	}
}

func TestGetReturnsStockWithSeries(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	stock := e.seedStock(t, "SAP.DE", 100)

	now := time.Now().UTC()
	for _, name := range []string{"Day", "Month"} {
		series := domain.HistorySeries{
			ID:          uuid.New().String(),
			StockID:     stock.ID,
			Name:        name,
			Period:      "1d",
			Interval:    "5m",
			Samples:     []float64{99, 100},
			RefreshedAt: now,
		}
		if err := e.store.Histories().Replace(ctx, series); err != nil {
			t.Fatalf("seed series: %v", err)
		}
	}

	svc := NewStockService(e.store.Stocks(), e.store.Histories(), e.store.Holdings(), e.store.Transactions(), nil, testLogger())

	detail, err := svc.Get(ctx, stock.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Stock.ID != stock.ID {
		t.Errorf("stock ID = %s", detail.Stock.ID)
	}
	if len(detail.Series) != 2 {
		t.Errorf("series = %d, want 2", len(detail.Series))
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing stock err = %v", err)
	}
}

func TestGetOverlaysFresherCachedQuote(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	stock := e.seedStock(t, "SAP.DE", 100)

	svc := NewStockService(e.store.Stocks(), e.store.Histories(), e.store.Holdings(), e.store.Transactions(), e.cache, testLogger())

	// Cold cache: the stored price stands.
	detail, err := svc.Get(ctx, stock.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := decimal.NewFromInt(100); !detail.Stock.CurrentPrice.Equal(want) {
		t.Errorf("price = %s, want stored %s", detail.Stock.CurrentPrice, want)
	}

	// A fresher cached quote wins over the stored row.
	if err := e.cache.SetPrice(ctx, "SAP.DE", decimal.NewFromFloat(101.5), time.Now().UTC()); err != nil {
		t.Fatalf("set price: %v", err)
	}
	detail, err = svc.Get(ctx, stock.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := decimal.NewFromFloat(101.5); !detail.Stock.CurrentPrice.Equal(want) {
		t.Errorf("price = %s, want cached %s", detail.Stock.CurrentPrice, want)
	}
}

func TestProfitCombinesRealizedAndHeld(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 100000)
	stock := e.seedStock(t, "SAP.DE", 100)

	trades := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())
	svc := NewStockService(e.store.Stocks(), e.store.Histories(), e.store.Holdings(), e.store.Transactions(), nil, testLogger())

	// Buy 10 at 100 (fee 15): cost 1015.
	if _, err := trades.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionBuy, 10); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// Price rises, then sell 4 at 120 (fee 15): proceeds 465.
	if err := e.store.Stocks().UpdatePrice(ctx, stock.ID, decimal.NewFromInt(120)); err != nil {
		t.Fatalf("update price: %v", err)
	}
	if _, err := trades.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionSell, 4); err != nil {
		t.Fatalf("sell: %v", err)
	}

	// A rejected trade must not count: selling more than held.
	rejected, err := trades.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionSell, 500)
	if err != nil {
		t.Fatalf("oversell: %v", err)
	}
	if rejected.Status != domain.TransactionError {
		t.Fatalf("oversell status = %s", rejected.Status)
	}

	profit, err := svc.Profit(ctx, team.ID, stock.ID)
	if err != nil {
		t.Fatalf("Profit: %v", err)
	}
	// -1015 + 465 + 6*120 = 170
	if want := decimal.NewFromInt(170); !profit.Equal(want) {
		t.Errorf("profit = %s, want %s", profit, want)
	}
}

func TestProfitWithPositionFullyClosed(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	team := e.seedTeam(t, "alpha", 100000)
	stock := e.seedStock(t, "SAP.DE", 100)

	trades := NewTradeService(e.store.Stocks(), e.store.Transactions(), e.exec, testLogger())
	svc := NewStockService(e.store.Stocks(), e.store.Histories(), e.store.Holdings(), e.store.Transactions(), nil, testLogger())

	if _, err := trades.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionBuy, 5); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := trades.SubmitOrder(ctx, team.ID, stock.ID, domain.TransactionSell, 5); err != nil {
		t.Fatalf("sell: %v", err)
	}

	profit, err := svc.Profit(ctx, team.ID, stock.ID)
	if err != nil {
		t.Fatalf("Profit: %v", err)
	}
	// Round trip at a flat price loses exactly the two fees.
	if want := decimal.NewFromInt(-30); !profit.Equal(want) {
		t.Errorf("profit = %s, want %s", profit, want)
	}
}
