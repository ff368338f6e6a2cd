// Package executor implements the transaction-execution engine: the sole
// authority for mutating team balances and holdings in response to a trade.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simbroker/simbroker/internal/domain"
)

// Notifier escalates data-integrity violations to the operator channels.
// Business-rule failures are never escalated; they are normal outcomes.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// eventLedgerCorrupt is the notification event type for integrity violations.
const eventLedgerCorrupt = "ledger_corrupt"

// Executor validates and atomically applies a single buy/sell against team
// state. All validation happens before any mutation, so a failed trade needs
// no rollback of financial state.
type Executor struct {
	ledger   domain.Ledger
	notifier Notifier
	logger   *slog.Logger
}

// New creates an Executor. notifier may be nil; integrity violations are then
// only logged.
func New(ledger domain.Ledger, notifier Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		ledger:   ledger,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute applies the given open transaction and returns it in its terminal
// state. Re-invoking Execute on an already-terminal transaction is a no-op
// that returns the transaction unchanged.
//
// Business-rule violations (insufficient funds, insufficient shares, missing
// holding, unknown type) do not produce a non-nil error: they are written
// into the transaction's status and note, and the record itself is the
// result channel. A non-nil error means infrastructure failure; the
// transaction is then left open and may be safely re-executed.
func (e *Executor) Execute(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if txn.Status != domain.TransactionOpen {
		return txn, nil
	}

	unit, err := e.ledger.Begin(ctx, txn.TeamID)
	if err != nil {
		return txn, fmt.Errorf("executor: begin trade unit: %w", err)
	}
	defer func() { _ = unit.Rollback(ctx) }()

	reject, err := e.apply(ctx, unit, txn)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerCorrupt) {
			e.escalate(ctx, txn, err)
		}
		return txn, err
	}

	if reject != nil {
		txn.Status = domain.TransactionError
		txn.Note = reject.Error()
	} else {
		txn.Status = domain.TransactionClosed
	}

	if err := unit.SetTransactionStatus(ctx, txn.ID, txn.Status, txn.Note); err != nil {
		txn.Status = domain.TransactionOpen
		txn.Note = ""
		return txn, fmt.Errorf("executor: set status: %w", err)
	}
	if err := unit.Commit(ctx); err != nil {
		txn.Status = domain.TransactionOpen
		txn.Note = ""
		return txn, fmt.Errorf("executor: commit: %w", err)
	}

	e.logger.InfoContext(ctx, "transaction executed",
		slog.String("transaction_id", txn.ID),
		slog.String("team_id", txn.TeamID),
		slog.String("type", string(txn.Type)),
		slog.String("status", string(txn.Status)),
	)
	return txn, nil
}

// apply runs the validate-then-mutate sequence inside the trade unit. A
// business-rule violation comes back as a non-nil reject error wrapping one
// of the domain sentinels (ErrInsufficientFunds, ErrInsufficientShares,
// ErrNoHolding, ErrInvalidTransactionType); no financial state has been
// touched in that case. The second error is infrastructure failure.
func (e *Executor) apply(ctx context.Context, unit domain.TradeUnit, txn domain.Transaction) (reject, err error) {
	team, err := unit.Team(ctx)
	if err != nil {
		return nil, fmt.Errorf("executor: load team: %w", err)
	}

	switch txn.Type {
	case domain.TransactionBuy:
		cost := txn.Cost()
		if cost.GreaterThan(team.Balance) {
			return fmt.Errorf("%w: total cost %s exceeds balance %s",
				domain.ErrInsufficientFunds, cost.StringFixed(2), team.Balance.StringFixed(2)), nil
		}
		if err := unit.AdjustBalance(ctx, cost.Neg()); err != nil {
			return nil, fmt.Errorf("executor: debit balance: %w", err)
		}
		if err := unit.AdjustHolding(ctx, txn.StockID, txn.Amount); err != nil {
			return nil, fmt.Errorf("executor: credit holding: %w", err)
		}

	case domain.TransactionSell:
		holding, err := unit.Holding(ctx, txn.StockID)
		if errors.Is(err, domain.ErrNoHolding) {
			return domain.ErrNoHolding, nil
		}
		if err != nil {
			return nil, fmt.Errorf("executor: load holding: %w", err)
		}
		if txn.Amount > holding.Amount {
			return fmt.Errorf("%w: you only hold %d",
				domain.ErrInsufficientShares, holding.Amount), nil
		}
		if err := unit.AdjustBalance(ctx, txn.Proceeds()); err != nil {
			return nil, fmt.Errorf("executor: credit balance: %w", err)
		}
		if err := unit.AdjustHolding(ctx, txn.StockID, -txn.Amount); err != nil {
			return nil, fmt.Errorf("executor: debit holding: %w", err)
		}

	default:
		return fmt.Errorf("%w %q", domain.ErrInvalidTransactionType, txn.Type), nil
	}

	return nil, nil
}

// escalate reports a ledger integrity violation. These indicate a bug in the
// locking discipline, not a user error.
func (e *Executor) escalate(ctx context.Context, txn domain.Transaction, err error) {
	e.logger.ErrorContext(ctx, "ledger integrity violation",
		slog.String("transaction_id", txn.ID),
		slog.String("team_id", txn.TeamID),
		slog.String("error", err.Error()),
	)
	if e.notifier != nil {
		_ = e.notifier.Notify(ctx, eventLedgerCorrupt, "Ledger integrity violation",
			fmt.Sprintf("transaction %s on team %s: %v", txn.ID, txn.TeamID, err))
	}
}
