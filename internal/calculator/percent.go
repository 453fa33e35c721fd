package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// ErrInsufficientData is returned when a window is too short or a required bar is missing.
var ErrInsufficientData = errors.New("insufficient data")

// Places is the rounding precision of every derived percentage and ratio.
const Places = 2

var hundred = decimal.NewFromInt(100)

// PercentChange returns (to - from) / from * 100 rounded to 2 decimals.
// A zero or negative base yields an unavailable value.
func PercentChange(from, to decimal.Decimal) model.Percent {
	if !from.IsPositive() {
		return model.Percent{}
	}
	return model.PercentOf(to.Sub(from).Div(from).Mul(hundred).Round(Places))
}

// Ratio returns num / den rounded to 2 decimals, unavailable when den is zero.
func Ratio(num, den decimal.Decimal) decimal.NullDecimal {
	if den.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(num.Div(den).Round(Places))
}
