// Package currency holds the coin-to-cash conversion policy. The cash
// amount is computed once, when a withdrawal is created, and frozen into
// the withdrawal row; changing the rate later never rewrites stored rows.
package currency

import "github.com/shopspring/decimal"

const (
	// CoinsPerUnit is the fixed conversion rate: 1000 coins = 1.00 cash.
	CoinsPerUnit = 1000

	// MinCashoutCoins is the smallest withdrawal the platform settles.
	MinCashoutCoins = 1000
)

// CashAmount converts a coin amount to its cash value at the fixed rate,
// truncated to 2 decimal places so the platform never owes fractional cents.
func CashAmount(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).
		Div(decimal.NewFromInt(CoinsPerUnit)).
		Truncate(2)
}
