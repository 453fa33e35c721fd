package collector

import (
	"context"
	"time"

	"GapSentinel/internal/model"
)

// BarSource supplies daily bars for a symbol.
//
// FetchDailyBars returns the trading-day bars dated within [end-days, end],
// sorted oldest first. Weekends and holidays never appear as entries.
type BarSource interface {
	FetchDailyBars(ctx context.Context, symbol string, end time.Time, days int) ([]model.DailyBar, error)
	Name() string
}

// window returns the inclusive date range covered by a fetch.
func window(end time.Time, days int) (from, to time.Time) {
	to = model.Day(end)
	return to.AddDate(0, 0, -days), to
}

// clip keeps the bars dated within [from, to].
func clip(bars []model.DailyBar, from, to time.Time) []model.DailyBar {
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}
