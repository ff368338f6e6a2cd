package updater

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
	"github.com/simbroker/simbroker/internal/marketdata"
	"github.com/simbroker/simbroker/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider answers every series request from the same per-ticker chart
// map and records how many calls it served.
type fakeProvider struct {
	charts map[string]marketdata.Chart
	err    error
	calls  int
}

func (p *fakeProvider) Charts(_ context.Context, tickers []string, _, _ string) (map[string]marketdata.Chart, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]marketdata.Chart, len(tickers))
	for _, t := range tickers {
		if c, ok := p.charts[t]; ok {
			out[t] = c
		}
	}
	return out, nil
}

type fakeNotifier struct {
	events []string
	titles []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, title, _ string) error {
	n.events = append(n.events, event)
	n.titles = append(n.titles, title)
	return nil
}

func ptr(f float64) *float64 { return &f }

func seedStocks(t *testing.T, store *memory.Store, tickers ...string) {
	t.Helper()
	for _, ticker := range tickers {
		err := store.Stocks().Upsert(context.Background(), domain.Stock{
			ID:           uuid.New().String(),
			Name:         ticker,
			Ticker:       ticker,
			CurrentPrice: decimal.Zero,
		})
		if err != nil {
			t.Fatalf("seed stock %s: %v", ticker, err)
		}
	}
}

func newTestUpdater(store *memory.Store, cache *memory.Cache, provider ChartProvider, notifier Notifier, cfg Config) *Updater {
	return New(store.Stocks(), store.Histories(), cache, provider, cache, notifier, cfg, testLogger())
}

func TestRunCycleRefreshesAllSeriesAndSetsPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := memory.NewCache()
	seedStocks(t, store, "SAP.DE", "BMW.DE")

	provider := &fakeProvider{charts: map[string]marketdata.Chart{
		"SAP.DE": {Closes: []*float64{ptr(100.5), nil, ptr(101.128)}},
		"BMW.DE": {Closes: []*float64{ptr(88)}},
	}}

	u := newTestUpdater(store, cache, provider, nil, Defaults())
	if err := u.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if provider.calls != len(DefaultSeries) {
		t.Errorf("provider calls = %d, want %d (one batched call per series)",
			provider.calls, len(DefaultSeries))
	}

	sap, err := store.Stocks().GetByTicker(ctx, "SAP.DE")
	if err != nil {
		t.Fatalf("get SAP: %v", err)
	}
	// Last valid sample of the Day series, rounded to cents.
	if want := decimal.NewFromFloat(101.13); !sap.CurrentPrice.Equal(want) {
		t.Errorf("SAP price = %s, want %s", sap.CurrentPrice, want)
	}
	if !sap.Listed() {
		t.Error("SAP should be listed after first refresh")
	}

	cached, _, err := cache.GetPrice(ctx, "SAP.DE")
	if err != nil {
		t.Fatalf("cached price: %v", err)
	}
	if !cached.Equal(sap.CurrentPrice) {
		t.Errorf("cache price = %s, store price = %s", cached, sap.CurrentPrice)
	}

	series, err := store.Histories().ListByStock(ctx, sap.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(series) != len(DefaultSeries) {
		t.Fatalf("SAP has %d series, want %d", len(series), len(DefaultSeries))
	}
	for _, s := range series {
		for _, sample := range s.Samples {
			if sample == 0 {
				t.Errorf("series %s kept a zero sample", s.Name)
			}
		}
		if len(s.Samples) != 2 {
			t.Errorf("series %s has %d samples, want 2 (null filtered)", s.Name, len(s.Samples))
		}
	}
}

func TestRunCycleMissingTickerIsCountedNotFatal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := memory.NewCache()
	seedStocks(t, store, "SAP.DE", "GHOST.DE")

	provider := &fakeProvider{charts: map[string]marketdata.Chart{
		"SAP.DE": {Closes: []*float64{ptr(120)}},
	}}

	u := newTestUpdater(store, cache, provider, nil, Defaults())
	if err := u.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sap, err := store.Stocks().GetByTicker(ctx, "SAP.DE")
	if err != nil {
		t.Fatalf("get SAP: %v", err)
	}
	if !sap.CurrentPrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("SAP price = %s, want 120", sap.CurrentPrice)
	}

	ghost, err := store.Stocks().GetByTicker(ctx, "GHOST.DE")
	if err != nil {
		t.Fatalf("get GHOST: %v", err)
	}
	if ghost.Listed() {
		t.Error("GHOST never got a quote and must stay unlisted")
	}
}

func TestRunCycleBreakerAbandonsRemainingSeries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := memory.NewCache()
	seedStocks(t, store, "SAP.DE", "BMW.DE")

	provider := &fakeProvider{err: domain.ErrProviderUnavailable}
	notifier := &fakeNotifier{}

	cfg := Defaults()
	cfg.MaxCycleErrors = 3
	u := newTestUpdater(store, cache, provider, notifier, cfg)

	err := u.RunCycle(ctx)
	if err == nil {
		t.Fatal("expected breaker error")
	}
	if !errors.Is(err, errBreakerTripped) {
		t.Fatalf("err = %v, want breaker", err)
	}

	// 2 tickers per failed batch, threshold 3: first call counts 2, second
	// counts 4 and trips. The remaining four series are never requested.
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
	if len(notifier.titles) != 1 {
		t.Errorf("notifications sent = %d, want 1", len(notifier.titles))
	}
	if len(notifier.events) != 1 || notifier.events[0] != "updater_breaker" {
		t.Errorf("events = %v, want [updater_breaker]", notifier.events)
	}
}

func TestRunCycleEmptyCatalogIsANoOp(t *testing.T) {
	store := memory.New()
	cache := memory.NewCache()
	provider := &fakeProvider{}

	u := newTestUpdater(store, cache, provider, nil, Defaults())
	if err := u.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times for empty catalog", provider.calls)
	}
}

func TestRunCycleAllNullSamplesCounted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := memory.NewCache()
	seedStocks(t, store, "SAP.DE")

	provider := &fakeProvider{charts: map[string]marketdata.Chart{
		"SAP.DE": {Closes: []*float64{nil, nil}},
	}}

	u := newTestUpdater(store, cache, provider, nil, Defaults())
	if err := u.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sap, err := store.Stocks().GetByTicker(ctx, "SAP.DE")
	if err != nil {
		t.Fatalf("get SAP: %v", err)
	}
	if sap.Listed() {
		t.Error("stock with only null samples must stay unlisted")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewSeeder(store.Stocks(), store.Histories(), nil, testLogger())

	if err := s.Seed(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	first, err := store.Stocks().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("seed produced no stocks")
	}

	// Second run with matching counts must not touch the catalog.
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	second, err := store.Stocks().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("second seed changed count: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if second[i].ID != first[i].ID {
			t.Fatalf("second seed replaced stock %s", first[i].Ticker)
		}
	}
}

func TestSeedRebuildsOnCountMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedStocks(t, store, "LEFTOVER.DE")

	cache := memory.NewCache()
	if err := cache.SetValue(ctx, "team-1", decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("set value: %v", err)
	}

	s := NewSeeder(store.Stocks(), store.Histories(), cache, testLogger())
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.Stocks().GetByTicker(ctx, "LEFTOVER.DE"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("leftover stock should be gone, got err = %v", err)
	}
	count, err := store.Stocks().Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count == 0 {
		t.Fatal("rebuild produced empty catalog")
	}

	// Cached valuations referenced the old catalog and must be dropped.
	board, err := cache.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board) != 0 {
		t.Errorf("leaderboard kept %d entries across a rebuild", len(board))
	}
}

func TestRunLoopRefusesSecondInstance(t *testing.T) {
	store := memory.New()
	cache := memory.NewCache()

	release, err := cache.Acquire(context.Background(), updaterLockKey, 0)
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer release()

	u := newTestUpdater(store, cache, &fakeProvider{}, nil, Defaults())
	err = u.RunLoop(context.Background())
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("err = %v, want ErrLockHeld", err)
	}
}
