// Package domain defines the ledger entities of the trading game and the
// store, cache, and ledger interfaces implemented by the infrastructure
// packages. All money values use fixed-point decimals; share counts are
// integers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one tradeable company. CurrentPrice is written only by the price
// updater; readers snapshot it and never lock it.
type Stock struct {
	ID           string
	Name         string
	Ticker       string
	CurrentPrice decimal.Decimal
	UpdatedAt    time.Time
}

// Listed reports whether the stock can be traded. A price of zero marks a
// stock whose first price refresh has not happened yet.
func (s Stock) Listed() bool {
	return s.CurrentPrice.IsPositive()
}

// HistorySeries is one named closing-price series of a stock, e.g.
// "Day" = period 1d at interval 5m. A series is replaced wholesale on every
// refresh cycle; stale samples are overwritten, never merged.
type HistorySeries struct {
	ID          string
	StockID     string
	Name        string
	Period      string
	Interval    string
	Samples     []float64
	RefreshedAt time.Time
}
