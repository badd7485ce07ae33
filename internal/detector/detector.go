// Package detector decides whether a price move is large enough to alert on.
package detector

import "github.com/shopspring/decimal"

// Threshold is the fractional move from the previous close that triggers an alert.
var Threshold = decimal.RequireFromString("0.01")

// Signal is the outcome of comparing a price with its previous close.
type Signal struct {
	// Delta is (price - previousClose) / previousClose.
	Delta     decimal.Decimal
	Triggered bool
	// Valid is false when either input is not positive.
	Valid bool
}

// Percent returns Delta scaled to percent.
func (s Signal) Percent() decimal.Decimal {
	return s.Delta.Mul(decimal.NewFromInt(100))
}

// Direction is "up", "down" or "flat".
func (s Signal) Direction() string {
	switch s.Delta.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	}
	return "flat"
}

// Evaluate triggers when |price - previousClose| > Threshold * previousClose.
// The comparison is exact, so a move of exactly one percent does not trigger.
func Evaluate(price, previousClose decimal.Decimal) Signal {
	if !previousClose.IsPositive() || !price.IsPositive() {
		return Signal{}
	}

	diff := price.Sub(previousClose)
	return Signal{
		Delta:     diff.Div(previousClose),
		Triggered: diff.Abs().GreaterThan(Threshold.Mul(previousClose)),
		Valid:     true,
	}
}
