package currency_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"coinledger/internal/currency"
)

func TestCashAmount(t *testing.T) {
	cases := []struct {
		coins int64
		want  string
	}{
		{1000, "1"},
		{5000, "5"},
		{1500, "1.5"},
		{1001, "1"},
		{1999, "1.99"},
		{2500, "2.5"},
		{1234567, "1234.56"},
	}

	for _, tc := range cases {
		got := currency.CashAmount(tc.coins)
		require.Equal(t, tc.want, got.String(), "coins=%d", tc.coins)
	}
}

func TestCashAmountNeverExceedsExactRate(t *testing.T) {
	// Truncation must round in the platform's favour.
	for coins := int64(1); coins < 3000; coins += 7 {
		got := currency.CashAmount(coins)
		backInCoins := got.Mul(decimal.NewFromInt(currency.CoinsPerUnit))
		require.True(t, backInCoins.LessThanOrEqual(decimal.NewFromInt(coins)), "coins=%d cash=%s", coins, got)
	}
}
