package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// StockDetail is a stock together with its stored history series.
type StockDetail struct {
	Stock  domain.Stock
	Series []domain.HistorySeries
}

// StockService serves catalog reads.
type StockService struct {
	stocks    domain.StockStore
	histories domain.HistoryStore
	holdings  domain.HoldingStore
	txns      domain.TransactionStore
	prices    domain.PriceCache
	logger    *slog.Logger
}

// NewStockService creates a StockService. prices may be nil; detail reads
// then serve the stored price only.
func NewStockService(
	stocks domain.StockStore,
	histories domain.HistoryStore,
	holdings domain.HoldingStore,
	txns domain.TransactionStore,
	prices domain.PriceCache,
	logger *slog.Logger,
) *StockService {
	return &StockService{
		stocks:    stocks,
		histories: histories,
		holdings:  holdings,
		txns:      txns,
		prices:    prices,
		logger:    logger.With(slog.String("component", "stock_service")),
	}
}

// Search returns listed stocks whose name or ticker contains the query.
// Unlisted stocks (price zero) are never offered for trading.
func (s *StockService) Search(ctx context.Context, query string) ([]domain.Stock, error) {
	stocks, err := s.stocks.Search(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("service: search stocks: %w", err)
	}
	return stocks, nil
}

// Get returns a stock with all its history series. When the quote cache
// holds a fresher price than the stored row, the detail carries the cached
// one; a cache miss or failure serves the stored price.
func (s *StockService) Get(ctx context.Context, stockID string) (StockDetail, error) {
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return StockDetail{}, fmt.Errorf("service: load stock: %w", err)
	}

	if s.prices != nil {
		price, ts, err := s.prices.GetPrice(ctx, stock.Ticker)
		if err == nil && price.IsPositive() && !ts.Before(stock.UpdatedAt) {
			stock.CurrentPrice = price
			stock.UpdatedAt = ts
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote cache read failed",
				slog.String("ticker", stock.Ticker),
				slog.String("error", err.Error()),
			)
		}
	}

	series, err := s.histories.ListByStock(ctx, stockID)
	if err != nil {
		return StockDetail{}, fmt.Errorf("service: load history: %w", err)
	}
	return StockDetail{Stock: stock, Series: series}, nil
}

// Profit computes a team's profit on one stock: proceeds of all closed sells
// minus costs of all closed buys, plus the market value of what is still
// held. Errored and open transactions never touch money and are ignored.
func (s *StockService) Profit(ctx context.Context, teamID, stockID string) (decimal.Decimal, error) {
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: load stock: %w", err)
	}

	txns, err := s.txns.ListByTeamAndStock(ctx, teamID, stockID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: load transactions: %w", err)
	}

	profit := decimal.Zero
	for _, txn := range txns {
		if txn.Status != domain.TransactionClosed {
			continue
		}
		switch txn.Type {
		case domain.TransactionBuy:
			profit = profit.Sub(txn.Cost())
		case domain.TransactionSell:
			profit = profit.Add(txn.Proceeds())
		}
	}

	holding, err := s.holdings.Get(ctx, teamID, stockID)
	switch {
	case err == nil:
		profit = profit.Add(stock.CurrentPrice.Mul(decimal.NewFromInt(holding.Amount)))
	case errors.Is(err, domain.ErrNoHolding):
		// Position fully closed; the realized sum stands on its own.
	default:
		return decimal.Zero, fmt.Errorf("service: load holding: %w", err)
	}

	return profit, nil
}
