package calculator

import (
	"fmt"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// VolumeWindow is the number of trailing sessions averaged for relative volume.
const VolumeWindow = 10

// RelativeVolume holds the target-day volume against its trailing average.
type RelativeVolume struct {
	Ratio        decimal.NullDecimal
	Volume       null.Int
	AvgVolume10D decimal.NullDecimal
}

// ComputeRelativeVolume compares the target bar's volume with the mean of the
// VolumeWindow most recent trailing bars. trailing must exclude the target date.
func ComputeRelativeVolume(target *model.DailyBar, trailing []model.DailyBar) (RelativeVolume, error) {
	var out RelativeVolume
	if target == nil {
		return out, fmt.Errorf("%w: target bar missing", ErrInsufficientData)
	}
	if len(trailing) < VolumeWindow {
		return out, fmt.Errorf("%w: %d trailing bars, need %d", ErrInsufficientData, len(trailing), VolumeWindow)
	}

	avg, err := CalculateSMA(extractVolumes(trailing), VolumeWindow)
	if err != nil {
		return out, err
	}
	out.Volume = null.IntFrom(target.Volume)
	out.AvgVolume10D = decimal.NewNullDecimal(avg)
	out.Ratio = Ratio(decimal.NewFromInt(target.Volume), avg)
	return out, nil
}
