package pricing

import "github.com/shopspring/decimal"

// Money represents an exact monetary value in whole currency units.
// Percentage discounts can leave fractional units, so it is not an integer.
type Money = decimal.Decimal

const bpsScale = 10000

var bpsDivisor = decimal.NewFromInt(bpsScale)

// applyBps returns amount × bps / 10000.
func applyBps(amount Money, bps int64) Money {
	if bps <= 0 || amount.Sign() <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(bps)).Div(bpsDivisor)
}

// percentLabel renders basis points as a whole or fractional percent, e.g. 1000 -> "10".
func percentLabel(bps int64) string {
	return decimal.New(bps, -2).String()
}

func nonNegative(m Money) Money {
	if m.Sign() < 0 {
		return decimal.Zero
	}
	return m
}
