package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simbroker/simbroker/internal/domain"
)

// WatchlistService manages per-team stock watchlists.
type WatchlistService struct {
	watchlist domain.WatchlistStore
	stocks    domain.StockStore
	logger    *slog.Logger
}

// NewWatchlistService creates a WatchlistService.
func NewWatchlistService(watchlist domain.WatchlistStore, stocks domain.StockStore, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{
		watchlist: watchlist,
		stocks:    stocks,
		logger:    logger.With(slog.String("component", "watchlist_service")),
	}
}

// Add puts a stock on the team's watchlist. The stock must exist; it does not
// have to be listed, so teams can watch for a listing.
func (s *WatchlistService) Add(ctx context.Context, teamID, stockID string) error {
	if _, err := s.stocks.GetByID(ctx, stockID); err != nil {
		return fmt.Errorf("service: watchlist add: %w", err)
	}
	if err := s.watchlist.Add(ctx, teamID, stockID); err != nil {
		return fmt.Errorf("service: watchlist add: %w", err)
	}
	return nil
}

// Remove takes a stock off the team's watchlist.
func (s *WatchlistService) Remove(ctx context.Context, teamID, stockID string) error {
	if err := s.watchlist.Remove(ctx, teamID, stockID); err != nil {
		return fmt.Errorf("service: watchlist remove: %w", err)
	}
	return nil
}

// List returns the team's watched stocks.
func (s *WatchlistService) List(ctx context.Context, teamID string) ([]domain.Stock, error) {
	stocks, err := s.watchlist.ListStocks(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("service: watchlist list: %w", err)
	}
	return stocks, nil
}
