package updater

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

//go:embed companies.json
var companiesJSON []byte

type referenceCompany struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Seeder bootstraps the stock catalog from the embedded reference list.
type Seeder struct {
	stocks      domain.StockStore
	histories   domain.HistoryStore
	leaderboard domain.LeaderboardCache
	logger      *slog.Logger
}

// NewSeeder creates a Seeder. leaderboard may be nil; a rebuild then leaves
// any cached ranking in place.
func NewSeeder(stocks domain.StockStore, histories domain.HistoryStore, leaderboard domain.LeaderboardCache, logger *slog.Logger) *Seeder {
	return &Seeder{
		stocks:      stocks,
		histories:   histories,
		leaderboard: leaderboard,
		logger:      logger.With(slog.String("component", "seeder")),
	}
}

// Seed makes the catalog match the reference list. It is idempotent and
// crash-only: on every start it compares counts, and only when they differ
// does it wipe and rebuild. Prices start at zero; stocks become listed once
// the updater delivers their first quote.
func (s *Seeder) Seed(ctx context.Context) error {
	var reference []referenceCompany
	if err := json.Unmarshal(companiesJSON, &reference); err != nil {
		return fmt.Errorf("updater: parse reference list: %w", err)
	}

	count, err := s.stocks.Count(ctx)
	if err != nil {
		return fmt.Errorf("updater: count catalog: %w", err)
	}
	if count == int64(len(reference)) {
		s.logger.Info("catalog up to date", slog.Int64("stocks", count))
		return nil
	}

	s.logger.Info("reseeding catalog",
		slog.Int64("have", count),
		slog.Int("want", len(reference)),
	)

	if err := s.histories.DeleteAll(ctx); err != nil {
		return fmt.Errorf("updater: clear history: %w", err)
	}
	if err := s.stocks.DeleteAll(ctx); err != nil {
		return fmt.Errorf("updater: clear catalog: %w", err)
	}
	// Valuations cached against the old catalog are meaningless now.
	if s.leaderboard != nil {
		if err := s.leaderboard.Clear(ctx); err != nil {
			return fmt.Errorf("updater: clear leaderboard: %w", err)
		}
	}

	for _, c := range reference {
		stock := domain.Stock{
			ID:           uuid.New().String(),
			Name:         c.Name,
			Ticker:       c.Ticker,
			CurrentPrice: decimal.Zero,
		}
		if err := s.stocks.Upsert(ctx, stock); err != nil {
			return fmt.Errorf("updater: seed %s: %w", c.Ticker, err)
		}
	}

	s.logger.Info("catalog seeded", slog.Int("stocks", len(reference)))
	return nil
}
