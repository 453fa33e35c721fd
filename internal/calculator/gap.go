package calculator

import (
	"fmt"
	"time"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
)

// MinGapBars is the shortest window accepted by ComputeGapAndChange.
const MinGapBars = 8

// DefaultWeekLookback is the number of sessions between the target and its week-ago reference.
const DefaultWeekLookback = 5

// GapOptions tunes ComputeGapAndChange.
type GapOptions struct {
	WeekLookback int // sessions before the target; <= 0 means DefaultWeekLookback
}

// GapAndChange holds the four overnight and intraday percentages for a target date.
type GapAndChange struct {
	GapToday       model.Percent
	GapTomorrow    model.Percent
	ChangeFromOpen model.Percent
	ChangeForWeek  model.Percent

	Today    *model.DailyBar
	Previous *model.DailyBar
	Next     *model.DailyBar
}

// ComputeGapAndChange derives the gap and change percentages around days.Target.
// bars must be ascending and trading-day only. When the window is shorter than
// MinGapBars or the previous/target bar is missing, every percentage is left
// unavailable and ErrInsufficientData is returned alongside the partial result.
func ComputeGapAndChange(bars []model.DailyBar, days calendar.TradingDays, opts GapOptions) (GapAndChange, error) {
	var out GapAndChange
	if len(bars) < MinGapBars {
		return out, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), MinGapBars)
	}

	prevIdx := indexOf(bars, days.Previous)
	todayIdx := indexOf(bars, days.Target)
	nextIdx := indexOf(bars, days.Next)

	if todayIdx >= 0 {
		out.Today = &bars[todayIdx]
	}
	if prevIdx < 0 || todayIdx < 0 {
		return out, fmt.Errorf("%w: missing bar for %s", ErrInsufficientData, missingDay(prevIdx, days))
	}
	prev, today := bars[prevIdx], bars[todayIdx]
	out.Previous = &bars[prevIdx]

	out.GapToday = PercentChange(prev.Close, today.Open)
	out.ChangeFromOpen = PercentChange(today.Open, today.Close)

	if nextIdx >= 0 {
		next := bars[nextIdx]
		out.Next = &bars[nextIdx]
		out.GapTomorrow = PercentChange(today.Close, next.Open)
	}

	lookback := opts.WeekLookback
	if lookback <= 0 {
		lookback = DefaultWeekLookback
	}
	if weekIdx := todayIdx - lookback; weekIdx >= 0 {
		out.ChangeForWeek = PercentChange(bars[weekIdx].Close, today.Close)
	}
	return out, nil
}

// Before returns the bars strictly earlier than date, preserving order.
func Before(bars []model.DailyBar, date time.Time) []model.DailyBar {
	for i, b := range bars {
		if !b.Date.Before(date) {
			return bars[:i]
		}
	}
	return bars
}

// Find returns the bar dated exactly date, or nil.
func Find(bars []model.DailyBar, date time.Time) *model.DailyBar {
	if i := indexOf(bars, date); i >= 0 {
		return &bars[i]
	}
	return nil
}

func indexOf(bars []model.DailyBar, date time.Time) int {
	for i := range bars {
		if model.SameDay(bars[i].Date, date) {
			return i
		}
	}
	return -1
}

func missingDay(prevIdx int, days calendar.TradingDays) string {
	if prevIdx < 0 {
		return days.Previous.Format(model.DateLayout)
	}
	return days.Target.Format(model.DateLayout)
}
