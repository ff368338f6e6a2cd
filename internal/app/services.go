package app

import (
	"log/slog"

	"github.com/simbroker/simbroker/internal/executor"
	"github.com/simbroker/simbroker/internal/service"
)

// Services bundles the outward API built on top of the wired dependencies.
// Embedding callers (a future transport, admin tooling) get one assembly
// point instead of re-wiring the executor themselves.
type Services struct {
	Trades     *service.TradeService
	Portfolios *service.PortfolioService
	Stocks     *service.StockService
	Teams      *service.TeamService
	Watchlists *service.WatchlistService
}

// BuildServices assembles the service layer. The executor escalates ledger
// integrity violations through the notifier.
func BuildServices(deps *Dependencies, logger *slog.Logger) *Services {
	exec := executor.New(deps.Ledger, deps.Notifier, logger)
	return &Services{
		Trades:     service.NewTradeService(deps.StockStore, deps.TransactionStore, exec, logger),
		Portfolios: service.NewPortfolioService(deps.TeamStore, deps.StockStore, deps.HoldingStore, deps.PriceCache, deps.Leaderboard, logger),
		Stocks:     service.NewStockService(deps.StockStore, deps.HistoryStore, deps.HoldingStore, deps.TransactionStore, deps.PriceCache, logger),
		Teams:      service.NewTeamService(deps.TeamStore, logger),
		Watchlists: service.NewWatchlistService(deps.WatchlistStore, deps.StockStore, logger),
	}
}
