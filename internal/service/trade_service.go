// Package service exposes the outward-facing operations of the broker. All
// administrative mutation goes through these entry points; nothing writes to
// balances or holdings except the executor behind TradeService.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simbroker/simbroker/internal/domain"
)

// TradeExecutor runs an open transaction to its terminal state.
type TradeExecutor interface {
	Execute(ctx context.Context, txn domain.Transaction) (domain.Transaction, error)
}

// TradeService accepts orders, snapshots their price and fee, and hands them
// to the executor.
type TradeService struct {
	stocks domain.StockStore
	txns   domain.TransactionStore
	exec   TradeExecutor
	logger *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(stocks domain.StockStore, txns domain.TransactionStore, exec TradeExecutor, logger *slog.Logger) *TradeService {
	return &TradeService{
		stocks: stocks,
		txns:   txns,
		exec:   exec,
		logger: logger.With(slog.String("component", "trade_service")),
	}
}

// SubmitOrder validates the order, persists it as an open Transaction with
// the current price and fee frozen in, executes it, and returns the terminal
// record. A rejected trade comes back with status "error" and the reason in
// Note; the returned error is non-nil only for invalid input or
// infrastructure failure.
func (s *TradeService) SubmitOrder(ctx context.Context, teamID, stockID string, typ domain.TransactionType, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, fmt.Errorf("service: submit order: %w", domain.ErrInvalidAmount)
	}
	if typ != domain.TransactionBuy && typ != domain.TransactionSell {
		return domain.Transaction{}, fmt.Errorf("service: submit order: %w: %q", domain.ErrInvalidTransactionType, typ)
	}

	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("service: load stock: %w", err)
	}
	if !stock.Listed() {
		return domain.Transaction{}, fmt.Errorf("service: submit order: %w", domain.ErrStockNotListed)
	}

	// Price and fee are frozen here; a concurrent price refresh never changes
	// what this trade costs.
	txn := domain.Transaction{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		StockID:   stockID,
		Type:      typ,
		Amount:    amount,
		Price:     stock.CurrentPrice,
		Fee:       domain.Fee(stock.CurrentPrice, amount),
		Status:    domain.TransactionOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("service: persist order: %w", err)
	}

	result, err := s.exec.Execute(ctx, txn)
	if err != nil {
		return result, fmt.Errorf("service: execute order: %w", err)
	}

	s.logger.InfoContext(ctx, "order settled",
		slog.String("transaction_id", result.ID),
		slog.String("team_id", teamID),
		slog.String("ticker", stock.Ticker),
		slog.String("status", string(result.Status)),
	)
	return result, nil
}

// Transactions lists a team's trade history, newest first.
func (s *TradeService) Transactions(ctx context.Context, teamID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	txns, err := s.txns.ListByTeam(ctx, teamID, opts)
	if err != nil {
		return nil, fmt.Errorf("service: list transactions: %w", err)
	}
	return txns, nil
}
