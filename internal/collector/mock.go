package collector

import (
	"context"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// Symbols without fixed bars get a deterministic weekday series.
type MockSource struct {
	Bars map[string][]model.DailyBar
	Err  error

	calls atomic.Int64
}

func (m *MockSource) Name() string { return "mock" }

// Calls returns how many fetches were served.
func (m *MockSource) Calls() int64 { return m.calls.Load() }

func (m *MockSource) FetchDailyBars(_ context.Context, symbol string, end time.Time, days int) ([]model.DailyBar, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	from, to := window(end, days)
	if fixed, ok := m.Bars[symbol]; ok {
		out := make([]model.DailyBar, len(fixed))
		copy(out, fixed)
		return clip(out, from, to), nil
	}
	return generateMockBars(symbol, from, to), nil
}

func generateMockBars(symbol string, from, to time.Time) []model.DailyBar {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := int64(h.Sum32())
	base := decimal.NewFromInt(20 + seed%180)

	var bars []model.DailyBar
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !(calendar.Weekdays{}).IsTradingDay(d) {
			continue
		}
		// small deterministic wiggle keyed on day of year
		step := decimal.NewFromInt(int64(d.YearDay()%7) - 3).Div(decimal.NewFromInt(10))
		open := base.Add(step)
		close := open.Add(step.Div(decimal.NewFromInt(2)))
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   open,
			High:   decimal.Max(open, close).Add(decimal.NewFromFloat(0.5)),
			Low:    decimal.Min(open, close).Sub(decimal.NewFromFloat(0.5)),
			Close:  close,
			Volume: 100000 + (seed+int64(d.YearDay())*977)%50000,
		})
	}
	return bars
}
