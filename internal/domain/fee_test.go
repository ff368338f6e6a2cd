package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFee(t *testing.T) {
	testCases := []struct {
		name   string
		price  string
		amount int64
		want   string
	}{
		{"minimum floor for tiny trade", "1", 1, "15"},
		{"percentage dominates floor", "150000", 100, "15000"},
		{"just below floor", "149", 100, "15"},
		{"large trade", "250.50", 1000, "250.5"},
		{"rounds to cents", "333.33", 100, "33.33"},
		{"zero price", "0", 10, "15"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			price := decimal.RequireFromString(tc.price)
			want := decimal.RequireFromString(tc.want)

			got := Fee(price, tc.amount)
			if !got.Equal(want) {
				t.Errorf("Fee(%s, %d) = %s, want %s", tc.price, tc.amount, got, want)
			}
		})
	}
}

func TestFeeNeverBelowMinimum(t *testing.T) {
	prices := []string{"0.01", "1", "14.99", "100", "1000"}
	for _, p := range prices {
		for amount := int64(1); amount <= 10; amount++ {
			fee := Fee(decimal.RequireFromString(p), amount)
			if fee.LessThan(MinimumFee) {
				t.Fatalf("Fee(%s, %d) = %s, below minimum %s", p, amount, fee, MinimumFee)
			}
		}
	}
}

func TestTransactionCostAndProceeds(t *testing.T) {
	txn := Transaction{
		Amount: 10,
		Price:  decimal.RequireFromString("10"),
		Fee:    decimal.RequireFromString("5"),
	}

	if got, want := txn.Cost(), decimal.RequireFromString("105"); !got.Equal(want) {
		t.Errorf("Cost() = %s, want %s", got, want)
	}
	if got, want := txn.Proceeds(), decimal.RequireFromString("95"); !got.Equal(want) {
		t.Errorf("Proceeds() = %s, want %s", got, want)
	}
}

func TestNewJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewJoinCode()
		if len(code) != 8 {
			t.Fatalf("join code %q has length %d, want 8", code, len(code))
		}
		if seen[code] {
			t.Fatalf("duplicate join code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}

func TestRankingEligible(t *testing.T) {
	team := Team{Name: "Alpha"}
	if !team.RankingEligible(3) {
		t.Error("team with members should be eligible")
	}
	if team.RankingEligible(0) {
		t.Error("team without members should not be eligible")
	}
	if (Team{Name: "default"}).RankingEligible(5) {
		t.Error("sentinel team should not be eligible")
	}
}
