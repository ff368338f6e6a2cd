// Package updater refreshes the stock catalog's prices and history series
// from the external chart provider on a fixed cadence.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simbroker/simbroker/internal/domain"
	"github.com/simbroker/simbroker/internal/marketdata"
)

// SeriesSpec names one history series and the provider parameters that
// produce it.
type SeriesSpec struct {
	Name     string
	Period   string
	Interval string
}

// DefaultSeries is the refresh plan, shortest range first. The first entry
// also supplies the current price: its last valid sample is the freshest
// close the provider knows.
var DefaultSeries = []SeriesSpec{
	{Name: "Day", Period: "1d", Interval: "5m"},
	{Name: "5 Days", Period: "5d", Interval: "30m"},
	{Name: "Month", Period: "1mo", Interval: "90m"},
	{Name: "3 Months", Period: "3mo", Interval: "1d"},
	{Name: "Year", Period: "1y", Interval: "1wk"},
	{Name: "5 Years", Period: "5y", Interval: "1mo"},
}

// ChartProvider fetches closing-price series for a batch of tickers.
type ChartProvider interface {
	Charts(ctx context.Context, tickers []string, period, interval string) (map[string]marketdata.Chart, error)
}

// Notifier delivers operator notifications when a cycle trips the error
// breaker.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// eventBreakerTripped is the notification event type for breaker escalations.
const eventBreakerTripped = "updater_breaker"

// Config controls the updater's cadence and limits.
type Config struct {
	// Interval is the target time between cycle starts. A cycle that runs
	// long is followed immediately by the next one.
	Interval time.Duration
	// Workers bounds the per-stock persistence fan-out.
	Workers int
	// MaxCycleErrors is the breaker threshold: once a cycle accumulates more
	// errors than this, its remaining series are abandoned.
	MaxCycleErrors int64
	// LockTTL is the lifetime of the single-instance lock; it is re-acquired
	// every cycle.
	LockTTL time.Duration
}

// Defaults returns the standard updater configuration.
func Defaults() Config {
	return Config{
		Interval:       5 * time.Minute,
		Workers:        16,
		MaxCycleErrors: 50,
		LockTTL:        15 * time.Minute,
	}
}

// Updater drives the refresh cycles.
type Updater struct {
	stocks    domain.StockStore
	histories domain.HistoryStore
	prices    domain.PriceCache
	provider  ChartProvider
	locks     domain.LockManager
	notifier  Notifier
	series    []SeriesSpec
	cfg       Config
	logger    *slog.Logger
}

// New creates an Updater over the default series plan.
func New(
	stocks domain.StockStore,
	histories domain.HistoryStore,
	prices domain.PriceCache,
	provider ChartProvider,
	locks domain.LockManager,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *Updater {
	if cfg.Workers <= 0 {
		cfg.Workers = Defaults().Workers
	}
	if cfg.MaxCycleErrors <= 0 {
		cfg.MaxCycleErrors = Defaults().MaxCycleErrors
	}
	return &Updater{
		stocks:    stocks,
		histories: histories,
		prices:    prices,
		provider:  provider,
		locks:     locks,
		notifier:  notifier,
		series:    DefaultSeries,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "updater")),
	}
}

// errBreakerTripped aborts the remaining series of a cycle.
var errBreakerTripped = errors.New("updater: too many errors this cycle")

// RunCycle refreshes every series for every stock once. Individual failures
// are counted, not fatal; the cycle only aborts when the error count passes
// the breaker threshold.
func (u *Updater) RunCycle(ctx context.Context) error {
	stocks, err := u.stocks.List(ctx)
	if err != nil {
		return fmt.Errorf("updater: load catalog: %w", err)
	}
	if len(stocks) == 0 {
		u.logger.Warn("catalog empty, nothing to refresh")
		return nil
	}

	tickers := make([]string, 0, len(stocks))
	byTicker := make(map[string]domain.Stock, len(stocks))
	for _, s := range stocks {
		tickers = append(tickers, s.Ticker)
		byTicker[s.Ticker] = s
	}

	var cycleErrors atomic.Int64

	for i, spec := range u.series {
		setPrice := i == 0
		if err := u.refreshSeries(ctx, spec, tickers, byTicker, setPrice, &cycleErrors); err != nil {
			if errors.Is(err, errBreakerTripped) {
				u.escalate(ctx, cycleErrors.Load(), spec)
				return err
			}
			return err
		}
	}

	u.logger.Info("cycle complete",
		slog.Int("stocks", len(stocks)),
		slog.Int64("errors", cycleErrors.Load()),
	)
	return nil
}

// refreshSeries fetches one (period, interval) pair for all tickers and fans
// the persistence out across the worker pool.
func (u *Updater) refreshSeries(
	ctx context.Context,
	spec SeriesSpec,
	tickers []string,
	byTicker map[string]domain.Stock,
	setPrice bool,
	cycleErrors *atomic.Int64,
) error {
	charts, err := u.provider.Charts(ctx, tickers, spec.Period, spec.Interval)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The whole batch failed; every ticker missed this refresh.
		u.logger.Error("provider call failed",
			slog.String("series", spec.Name),
			slog.String("error", err.Error()),
		)
		if cycleErrors.Add(int64(len(tickers))) > u.cfg.MaxCycleErrors {
			return errBreakerTripped
		}
		return nil
	}
	if len(charts) == 0 {
		u.logger.Warn("provider returned no charts, skipping series",
			slog.String("series", spec.Name),
		)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Workers)

	for _, ticker := range tickers {
		stock := byTicker[ticker]
		chart, ok := charts[ticker]
		if !ok {
			u.logger.Warn("ticker missing from provider response",
				slog.String("ticker", ticker),
				slog.String("series", spec.Name),
			)
			cycleErrors.Add(1)
			continue
		}

		g.Go(func() error {
			if err := u.persistChart(gctx, stock, spec, chart, setPrice); err != nil {
				u.logger.Error("refresh failed",
					slog.String("ticker", stock.Ticker),
					slog.String("series", spec.Name),
					slog.String("error", err.Error()),
				)
				cycleErrors.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if cycleErrors.Load() > u.cfg.MaxCycleErrors {
		return errBreakerTripped
	}
	return nil
}

// persistChart filters the samples, replaces the stored series, and on the
// price-setting series writes the current price to the store and the cache.
func (u *Updater) persistChart(ctx context.Context, stock domain.Stock, spec SeriesSpec, chart marketdata.Chart, setPrice bool) error {
	samples := make([]float64, 0, len(chart.Closes))
	for _, c := range chart.Closes {
		if c == nil {
			continue
		}
		samples = append(samples, *c)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no usable samples for %s/%s", stock.Ticker, spec.Name)
	}

	err := u.histories.Replace(ctx, domain.HistorySeries{
		ID:       uuid.New().String(),
		StockID:  stock.ID,
		Name:     spec.Name,
		Period:   spec.Period,
		Interval: spec.Interval,
		Samples:  samples,
	})
	if err != nil {
		return fmt.Errorf("replace series: %w", err)
	}

	if !setPrice {
		return nil
	}

	price := decimal.NewFromFloat(samples[len(samples)-1]).Round(2)
	if err := u.stocks.UpdatePrice(ctx, stock.ID, price); err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	if err := u.prices.SetPrice(ctx, stock.Ticker, price, time.Now().UTC()); err != nil {
		// The cache is best-effort; the store already has the price.
		u.logger.Warn("price cache write failed",
			slog.String("ticker", stock.Ticker),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (u *Updater) escalate(ctx context.Context, count int64, spec SeriesSpec) {
	u.logger.Error("error breaker tripped, abandoning cycle",
		slog.Int64("errors", count),
		slog.String("series", spec.Name),
	)
	if u.notifier == nil {
		return
	}
	msg := fmt.Sprintf("price refresh abandoned at series %q after %d errors", spec.Name, count)
	if err := u.notifier.Notify(ctx, eventBreakerTripped, "Price updater breaker tripped", msg); err != nil {
		u.logger.Error("notification delivery failed", slog.String("error", err.Error()))
	}
}

// updaterLockKey guards against two updaters refreshing the same catalog.
const updaterLockKey = "price-updater"

// RunLoop runs refresh cycles until the context is cancelled. The next cycle
// starts Interval after the previous one started, so a slow cycle shortens
// the following sleep rather than drifting the cadence.
func (u *Updater) RunLoop(ctx context.Context) error {
	release, err := u.locks.Acquire(ctx, updaterLockKey, u.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("updater: another instance is running: %w", err)
		}
		return fmt.Errorf("updater: acquire lock: %w", err)
	}
	defer release()

	u.logger.Info("updater loop starting", slog.Duration("interval", u.cfg.Interval))

	for {
		start := time.Now()
		if err := u.RunCycle(ctx); err != nil && ctx.Err() == nil {
			u.logger.Error("cycle failed", slog.String("error", err.Error()))
		}
		if ctx.Err() != nil {
			u.logger.Info("updater loop stopped")
			return ctx.Err()
		}

		sleep := u.cfg.Interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			u.logger.Info("updater loop stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
