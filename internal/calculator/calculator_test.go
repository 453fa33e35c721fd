package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
)

var start = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC) // Monday

// weekdayBars returns n consecutive weekday bars with closes 100, 101, ...
// and each open equal to the prior close.
func weekdayBars(n int) []model.DailyBar {
	bars := make([]model.DailyBar, 0, n)
	d := start
	for i := 0; i < n; i++ {
		for !(calendar.Weekdays{}).IsTradingDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		close := decimal.NewFromInt(int64(100 + i))
		open := close.Sub(decimal.NewFromInt(1))
		if i == 0 {
			open = close
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   open,
			High:   close.Add(decimal.NewFromInt(1)),
			Low:    open.Sub(decimal.NewFromInt(1)),
			Close:  close,
			Volume: 1000,
		})
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"112", "113", "0.89%"},
		{"100", "101", "1.00%"},
		{"100", "99", "-1.00%"},
		{"3", "4", "33.33%"},
		{"8", "9.00040", "12.51%"},  // 12.505 rounds half up
		{"8", "6.99960", "-12.51%"}, // -12.505 rounds away from zero
		{"0", "5", "N/A"},
	}
	for _, tt := range tests {
		got := PercentChange(decimal.RequireFromString(tt.from), decimal.RequireFromString(tt.to))
		assert.Equal(t, tt.want, got.String(), "%s -> %s", tt.from, tt.to)
	}
}

func TestRatio_ZeroDenominator(t *testing.T) {
	r := Ratio(decimal.NewFromInt(5), decimal.Zero)
	assert.False(t, r.Valid)
}

func TestComputeGapAndChange_GapToday(t *testing.T) {
	bars := weekdayBars(15)
	target := bars[13]
	bars[13].Open = decimal.NewFromInt(113) // prior close is 112

	days := calendar.LocateTradingDays(calendar.Weekdays{}, target.Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	require.NoError(t, err)

	assert.Equal(t, "0.89%", got.GapToday.String())
	// today close 113, next open 113
	assert.Equal(t, "0.00%", got.GapTomorrow.String())
	// today open 113, close 113
	assert.Equal(t, "0.00%", got.ChangeFromOpen.String())
	// five sessions back: close 108
	assert.Equal(t, "4.63%", got.ChangeForWeek.String())
	require.NotNil(t, got.Today)
	assert.True(t, got.Today.Close.Equal(decimal.NewFromInt(113)))
}

func TestComputeGapAndChange_FormulasReproducible(t *testing.T) {
	bars := weekdayBars(12)
	idx := 9
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[idx].Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{WeekLookback: 7})
	require.NoError(t, err)

	prev, today, next, week := bars[idx-1], bars[idx], bars[idx+1], bars[idx-7]
	assert.Equal(t, PercentChange(prev.Close, today.Open).String(), got.GapToday.String())
	assert.Equal(t, PercentChange(today.Close, next.Open).String(), got.GapTomorrow.String())
	assert.Equal(t, PercentChange(today.Open, today.Close).String(), got.ChangeFromOpen.String())
	assert.Equal(t, PercentChange(week.Close, today.Close).String(), got.ChangeForWeek.String())
	// (109 - 108) / 108 * 100
	assert.Equal(t, "0.93%", got.ChangeFromOpen.String())
}

func TestComputeGapAndChange_TooFewBars(t *testing.T) {
	bars := weekdayBars(7)
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[5].Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
	for _, p := range []model.Percent{got.GapToday, got.GapTomorrow, got.ChangeFromOpen, got.ChangeForWeek} {
		assert.Equal(t, model.NotAvailable, p.String())
	}
}

func TestComputeGapAndChange_MissingNextBar(t *testing.T) {
	bars := weekdayBars(10)
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[9].Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	require.NoError(t, err)
	assert.False(t, got.GapTomorrow.Valid)
	assert.True(t, got.GapToday.Valid)
	assert.True(t, got.ChangeFromOpen.Valid)
	assert.True(t, got.ChangeForWeek.Valid)
	assert.Nil(t, got.Next)
}

func TestComputeGapAndChange_MissingPreviousBar(t *testing.T) {
	bars := weekdayBars(12)
	// drop the bar before the target
	bars = append(bars[:5], bars[6:]...)
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[5].Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, got.GapToday.Valid)
	assert.False(t, got.GapTomorrow.Valid)
	assert.False(t, got.ChangeFromOpen.Valid)
	assert.False(t, got.ChangeForWeek.Valid)
	assert.NotNil(t, got.Today)
}

func TestComputeGapAndChange_MissingTargetBar(t *testing.T) {
	bars := weekdayBars(12)
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[11].Date.AddDate(0, 0, 14))
	_, err := ComputeGapAndChange(bars, days, GapOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeGapAndChange_MondayUsesFridayClose(t *testing.T) {
	bars := weekdayBars(12)
	// bars[5] is Monday 2025-02-10, bars[4] is Friday 2025-02-07
	require.Equal(t, time.Monday, bars[5].Date.Weekday())
	bars[5].Open = decimal.NewFromInt(110)

	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[5].Date)
	assert.Equal(t, bars[4].Date, days.Previous)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	require.NoError(t, err)
	// (110 - 104) / 104 * 100
	assert.Equal(t, "5.77%", got.GapToday.String())
	// five sessions back is the first bar, close 100
	assert.Equal(t, "5.00%", got.ChangeForWeek.String())
}

func TestComputeGapAndChange_ZeroPreviousClose(t *testing.T) {
	bars := weekdayBars(10)
	bars[4].Close = decimal.Zero
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[5].Date)
	got, err := ComputeGapAndChange(bars, days, GapOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.NotAvailable, got.GapToday.String())
	assert.True(t, got.ChangeFromOpen.Valid)
}

func TestComputeGapAndChange_Idempotent(t *testing.T) {
	bars := weekdayBars(15)
	days := calendar.LocateTradingDays(calendar.Weekdays{}, bars[10].Date)
	a, errA := ComputeGapAndChange(bars, days, GapOptions{})
	b, errB := ComputeGapAndChange(bars, days, GapOptions{})
	assert.Equal(t, errA, errB)
	assert.Equal(t, a, b)
}

func volumeBars(volumes ...int64) []model.DailyBar {
	bars := weekdayBars(len(volumes))
	for i, v := range volumes {
		bars[i].Volume = v
	}
	return bars
}

func TestComputeRelativeVolume(t *testing.T) {
	trailing := volumeBars(20000, 30000, 20000, 30000, 20000, 30000, 20000, 30000, 20000, 30000)
	target := &model.DailyBar{Volume: 50000}

	got, err := ComputeRelativeVolume(target, trailing)
	require.NoError(t, err)
	require.True(t, got.Ratio.Valid)
	assert.True(t, got.Ratio.Decimal.Equal(decimal.NewFromInt(2)), "got %s", got.Ratio.Decimal)
	assert.Equal(t, int64(50000), got.Volume.ValueOrZero())
	assert.True(t, got.AvgVolume10D.Decimal.Equal(decimal.NewFromInt(25000)))
}

func TestComputeRelativeVolume_UsesMostRecentTen(t *testing.T) {
	trailing := volumeBars(1_000_000, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)
	got, err := ComputeRelativeVolume(&model.DailyBar{Volume: 30}, trailing)
	require.NoError(t, err)
	assert.Equal(t, "3.00", got.Ratio.Decimal.StringFixed(2))
}

func TestComputeRelativeVolume_NineTrailingBars(t *testing.T) {
	trailing := volumeBars(1, 2, 3, 4, 5, 6, 7, 8, 9)
	got, err := ComputeRelativeVolume(&model.DailyBar{Volume: 10}, trailing)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, got.Ratio.Valid)
	assert.False(t, got.Volume.Valid)
	assert.False(t, got.AvgVolume10D.Valid)
}

func TestComputeRelativeVolume_ZeroAverage(t *testing.T) {
	trailing := volumeBars(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	got, err := ComputeRelativeVolume(&model.DailyBar{Volume: 10}, trailing)
	require.NoError(t, err)
	assert.False(t, got.Ratio.Valid)
	assert.True(t, got.Volume.Valid)
	assert.True(t, got.AvgVolume10D.Valid)
}

func TestComputeRelativeVolume_MissingTarget(t *testing.T) {
	_, err := ComputeRelativeVolume(nil, volumeBars(1, 1, 1, 1, 1, 1, 1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateSMA(t *testing.T) {
	vals := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3)}
	avg, err := CalculateSMA(vals, 2)
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.RequireFromString("2.5")))

	_, err = CalculateSMA(vals, 4)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = CalculateSMA(vals, 0)
	assert.Error(t, err)
}

func TestBeforeAndFind(t *testing.T) {
	bars := weekdayBars(6)
	assert.Len(t, Before(bars, bars[3].Date), 3)
	assert.Len(t, Before(bars, bars[5].Date.AddDate(0, 0, 7)), 6)
	assert.NotNil(t, Find(bars, bars[2].Date))
	assert.Nil(t, Find(bars, start.AddDate(0, 0, 5))) // Saturday
}
