package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simbroker/simbroker/internal/domain"
)

// RankingEntry is one row of the ranking list.
type RankingEntry struct {
	Rank  int
	Team  domain.Team
	Value decimal.Decimal
}

// RankingPage is one page of the ranking list.
type RankingPage struct {
	Entries  []RankingEntry
	Page     int
	PageSize int
	Total    int
}

// PortfolioService computes team valuations and the ranking.
type PortfolioService struct {
	teams       domain.TeamStore
	stocks      domain.StockStore
	holdings    domain.HoldingStore
	prices      domain.PriceCache
	leaderboard domain.LeaderboardCache
	logger      *slog.Logger
}

// NewPortfolioService creates a PortfolioService. prices and leaderboard may
// be nil; valuations then read prices from the store and are never cached.
func NewPortfolioService(
	teams domain.TeamStore,
	stocks domain.StockStore,
	holdings domain.HoldingStore,
	prices domain.PriceCache,
	leaderboard domain.LeaderboardCache,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		teams:       teams,
		stocks:      stocks,
		holdings:    holdings,
		prices:      prices,
		leaderboard: leaderboard,
		logger:      logger.With(slog.String("component", "portfolio_service")),
	}
}

// PortfolioValue is the team's cash balance plus the market value of every
// holding at current prices.
func (s *PortfolioService) PortfolioValue(ctx context.Context, teamID string) (decimal.Decimal, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: load team: %w", err)
	}

	value, err := s.valueOf(ctx, team)
	if err != nil {
		return decimal.Zero, err
	}

	// Opportunistic cache refresh; ranking reads fall back to the stores
	// anyway, so a failure here is not worth surfacing.
	if s.leaderboard != nil {
		if err := s.leaderboard.SetValue(ctx, teamID, value); err != nil {
			s.logger.WarnContext(ctx, "leaderboard update failed",
				slog.String("team_id", teamID),
				slog.String("error", err.Error()),
			)
		}
	}

	return value, nil
}

// valueOf computes balance + sum(amount * current price) for one team. Prices
// come from the quote cache in one pipelined read; the stock row covers any
// ticker the cache misses.
func (s *PortfolioService) valueOf(ctx context.Context, team domain.Team) (decimal.Decimal, error) {
	holdings, err := s.holdings.ListByTeam(ctx, team.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: list holdings: %w", err)
	}
	if len(holdings) == 0 {
		return team.Balance, nil
	}

	stocks := make([]domain.Stock, len(holdings))
	tickers := make([]string, len(holdings))
	for i, h := range holdings {
		stock, err := s.stocks.GetByID(ctx, h.StockID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("service: load stock %s: %w", h.StockID, err)
		}
		stocks[i] = stock
		tickers[i] = stock.Ticker
	}
	cached := s.cachedPrices(ctx, tickers)

	value := team.Balance
	for i, h := range holdings {
		price := stocks[i].CurrentPrice
		if p, ok := cached[stocks[i].Ticker]; ok {
			price = p
		}
		value = value.Add(price.Mul(decimal.NewFromInt(h.Amount)))
	}
	return value, nil
}

// cachedPrices reads quotes for the tickers in one round trip. A cache
// failure degrades to store prices instead of failing the valuation.
func (s *PortfolioService) cachedPrices(ctx context.Context, tickers []string) map[string]decimal.Decimal {
	if s.prices == nil {
		return nil
	}
	cached, err := s.prices.GetPrices(ctx, tickers)
	if err != nil {
		s.logger.WarnContext(ctx, "price cache read failed",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return cached
}

// Rank returns the team's 1-based position: one plus the number of eligible
// teams with a strictly greater portfolio value. Ineligible teams still get a
// rank against the eligible field.
func (s *PortfolioService) Rank(ctx context.Context, teamID string) (int, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return 0, fmt.Errorf("service: load team: %w", err)
	}

	own, err := s.valueOf(ctx, team)
	if err != nil {
		return 0, err
	}

	eligible, err := s.eligibleTeams(ctx)
	if err != nil {
		return 0, err
	}

	rank := 1
	for _, other := range eligible {
		if other.ID == team.ID {
			continue
		}
		value, err := s.valueOf(ctx, other)
		if err != nil {
			return 0, err
		}
		if value.GreaterThan(own) {
			rank++
		}
	}
	return rank, nil
}

// Ranking returns one page of the full ranking, best team first. Ties share
// their order of evaluation but never skip ranks.
func (s *PortfolioService) Ranking(ctx context.Context, page, pageSize int) (RankingPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	eligible, err := s.eligibleTeams(ctx)
	if err != nil {
		return RankingPage{}, err
	}

	entries := make([]RankingEntry, 0, len(eligible))
	for _, team := range eligible {
		value, err := s.valueOf(ctx, team)
		if err != nil {
			return RankingPage{}, err
		}
		entries = append(entries, RankingEntry{Team: team, Value: value})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value.GreaterThan(entries[j].Value)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if s.leaderboard != nil {
		for _, e := range entries {
			if err := s.leaderboard.SetValue(ctx, e.Team.ID, e.Value); err != nil {
				s.logger.WarnContext(ctx, "leaderboard update failed",
					slog.String("team_id", e.Team.ID),
					slog.String("error", err.Error()),
				)
				break
			}
		}
	}

	total := len(entries)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return RankingPage{
		Entries:  entries[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// Leaders returns up to n teams, best first. It serves from the leaderboard
// cache when that is warm and recomputes the ranking from the stores
// otherwise, so an empty or unavailable cache never hides the ranking.
func (s *PortfolioService) Leaders(ctx context.Context, n int) ([]domain.Team, error) {
	if n < 1 {
		n = 10
	}

	if s.leaderboard != nil {
		ids, err := s.leaderboard.Top(ctx, int64(n))
		if err != nil {
			s.logger.WarnContext(ctx, "leaderboard read failed",
				slog.String("error", err.Error()),
			)
		} else if len(ids) > 0 {
			teams := make([]domain.Team, 0, len(ids))
			for _, id := range ids {
				team, err := s.teams.GetByID(ctx, id)
				if errors.Is(err, domain.ErrNotFound) {
					// stale board entry, the team is gone
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("service: load team %s: %w", id, err)
				}
				teams = append(teams, team)
			}
			return teams, nil
		}
	}

	page, err := s.Ranking(ctx, 1, n)
	if err != nil {
		return nil, err
	}
	teams := make([]domain.Team, 0, len(page.Entries))
	for _, e := range page.Entries {
		teams = append(teams, e.Team)
	}
	return teams, nil
}

// Holdings lists a team's current holdings.
func (s *PortfolioService) Holdings(ctx context.Context, teamID string) ([]domain.Holding, error) {
	holdings, err := s.holdings.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("service: list holdings: %w", err)
	}
	return holdings, nil
}

// eligibleTeams returns teams that take part in the ranking: at least one
// member and not a sentinel name.
func (s *PortfolioService) eligibleTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list teams: %w", err)
	}
	counts, err := s.teams.MemberCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: member counts: %w", err)
	}

	eligible := make([]domain.Team, 0, len(teams))
	for _, team := range teams {
		if team.RankingEligible(counts[team.ID]) {
			eligible = append(eligible, team)
		}
	}
	return eligible, nil
}
