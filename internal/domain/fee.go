package domain

import "github.com/shopspring/decimal"

// FeeRate is the percentage charged on the gross value of every trade.
var FeeRate = decimal.New(1, -3) // 0.1%

// MinimumFee is the floor applied to every trade, however small.
var MinimumFee = decimal.New(15, 0)

// Fee computes the transaction cost for a trade of amount shares at the given
// price: FeeRate * price * amount, rounded to cents, never below MinimumFee.
// Pure and deterministic; it has no failure modes.
func Fee(price decimal.Decimal, amount int64) decimal.Decimal {
	fee := price.Mul(decimal.NewFromInt(amount)).Mul(FeeRate).Round(2)
	if fee.LessThan(MinimumFee) {
		return MinimumFee
	}
	return fee
}
