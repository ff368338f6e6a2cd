package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a trade.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// TransactionStatus tracks the lifecycle of a trade. Transactions are created
// open, and the executor moves them to exactly one terminal state. Terminal
// states are final; a rejected trade is re-submitted as a new Transaction.
type TransactionStatus string

const (
	TransactionOpen   TransactionStatus = "open"
	TransactionClosed TransactionStatus = "closed"
	TransactionError  TransactionStatus = "error"
)

// Terminal reports whether the status is final.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionClosed || s == TransactionError
}

// Transaction is the immutable record of one attempted trade. Price and Fee
// are snapshots taken at submission time, so a concurrent price refresh never
// changes what a trade costs. Note carries the human-readable failure reason
// for transactions that end in the error state.
type Transaction struct {
	ID        string
	TeamID    string
	StockID   string
	Type      TransactionType
	Amount    int64
	Price     decimal.Decimal
	Fee       decimal.Decimal
	Status    TransactionStatus
	Note      string
	CreatedAt time.Time
}

// Cost is the cash a buy removes from the balance: amount*price + fee.
func (t Transaction) Cost() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Amount)).Add(t.Fee)
}

// Proceeds is the cash a sell adds to the balance: amount*price - fee.
func (t Transaction) Proceeds() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Amount)).Sub(t.Fee)
}
