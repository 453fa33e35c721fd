package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"GapSentinel/internal/calculator"
	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
)

// DefaultWindowDays is the calendar span fetched per request. It must cover
// the week-ago reference and the trailing volume window before the target.
const DefaultWindowDays = 30

// Analyzer runs the fetch and compute pipeline for a single request.
type Analyzer struct {
	Source     BarSource
	Calendar   calendar.Calendar
	WindowDays int
	Gap        calculator.GapOptions

	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer. A nil calendar means weekdays only.
func NewAnalyzer(src BarSource, cal calendar.Calendar, windowDays, weekLookback int) *Analyzer {
	if cal == nil {
		cal = calendar.Weekdays{}
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Analyzer{
		Source:     src,
		Calendar:   cal,
		WindowDays: windowDays,
		Gap:        calculator.GapOptions{WeekLookback: weekLookback},
		logger:     log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze fetches the bars around req.Date and computes every metric.
// Missing data degrades individual fields; only invalid input and source
// failures are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, req model.MetricsRequest) (*model.MetricsResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	days := calendar.LocateTradingDays(a.Calendar, req.Date)
	logger := a.logger.With().Str("symbol", req.Symbol).Str("date", req.Date.Format(model.DateLayout)).Logger()

	windowDays := a.fetchWindow(days)
	bars, err := a.Source.FetchDailyBars(ctx, req.Symbol, days.Next, windowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	logger.Debug().Int("bars", len(bars)).Int("window_days", windowDays).Msg("bars fetched")

	return a.Compute(req, days, bars, logger), nil
}

// fetchWindow returns the calendar span ending at days.Next that reaches back
// far enough for the week-ago bar and the trailing volume window. It never
// shrinks below WindowDays.
func (a *Analyzer) fetchWindow(days calendar.TradingDays) int {
	lookback := a.Gap.WeekLookback
	if lookback <= 0 {
		lookback = calculator.DefaultWeekLookback
	}
	earliest := calendar.SessionsBefore(a.Calendar, days.Target, max(lookback, calculator.VolumeWindow))
	need := int(days.Next.Sub(earliest).Hours() / 24)
	return max(a.WindowDays, need)
}

// Compute derives a result from an already fetched window.
func (a *Analyzer) Compute(req model.MetricsRequest, days calendar.TradingDays, bars []model.DailyBar, logger zerolog.Logger) *model.MetricsResult {
	res := model.EmptyResult(req)

	target := calculator.Find(bars, days.Target)
	if target != nil {
		res.OpenPrice = decimal.NewNullDecimal(target.Open)
		res.ClosePrice = decimal.NewNullDecimal(target.Close)
	} else {
		logger.Warn().Msg("no bar for target date")
	}

	// Gap and change
	if gc, err := calculator.ComputeGapAndChange(bars, days, a.Gap); err != nil {
		logger.Warn().Err(err).Msg("gap/change calculation failed")
	} else {
		res.GapToday = gc.GapToday
		res.GapTomorrow = gc.GapTomorrow
		res.ChangeFromOpen = gc.ChangeFromOpen
		res.ChangeForWeek = gc.ChangeForWeek
		if gc.Next == nil {
			logger.Warn().Str("next", days.Next.Format(model.DateLayout)).Msg("no bar for next trading day")
		}
	}

	// Relative volume
	if rv, err := calculator.ComputeRelativeVolume(target, calculator.Before(bars, days.Target)); err != nil {
		logger.Warn().Err(err).Msg("relative volume calculation failed")
	} else {
		res.RelativeVolume = rv.Ratio
		res.Volume = rv.Volume
		res.AvgVolume10D = rv.AvgVolume10D
	}
	return res
}
