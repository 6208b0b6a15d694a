// Package money rounds currency amounts to cents.
//
// Amounts are carried as float64 in records but every arithmetic step goes
// through decimal, so a value produced here is always the float64 closest to
// a two-place decimal. Rounding is half away from zero, which for the
// non-negative amounts of this generator is round-half-up.
package money

import "github.com/shopspring/decimal"

const places = 2

// Round rounds v to cents
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Mul returns round(price * qty)
func Mul(price float64, qty int) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Round(places).InexactFloat64()
}

// Sum returns round(sum(values)) computed exactly in decimal
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(places).InexactFloat64()
}

// Sub returns round(a - b)
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(places).InexactFloat64()
}

// Percent returns round(amount * rate)
func Percent(amount, rate float64) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(places).InexactFloat64()
}

// Scale returns round(amount * factor). Used for price drift.
func Scale(amount, factor float64) float64 {
	return Percent(amount, factor)
}
