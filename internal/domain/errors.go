package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")

	// Business-rule violations raised by the transaction executor. These are
	// expected outcomes: they terminate the Transaction record rather than
	// propagating to the caller.
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientShares     = errors.New("insufficient shares")
	ErrNoHolding              = errors.New("no holding for this stock")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrStockNotListed         = errors.New("stock is not listed for trading")

	// Market-data provider failures. Transient; the updater retries on the
	// next cycle.
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	ErrMalformedResponse   = errors.New("malformed provider response")

	// ErrLedgerCorrupt marks a data-integrity violation (e.g. a negative
	// holding observed under lock). This indicates a bug in the locking
	// discipline and must be escalated, never silently recovered.
	ErrLedgerCorrupt = errors.New("ledger integrity violation")
)
