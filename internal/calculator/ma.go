package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(values) < period {
		return decimal.Zero, ErrInsufficientData
	}
	sum := decimal.Zero
	for i := len(values) - period; i < len(values); i++ {
		sum = sum.Add(values[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

func extractVolumes(bars []model.DailyBar) []decimal.Decimal {
	volumes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		volumes[i] = decimal.NewFromInt(b.Volume)
	}
	return volumes
}
