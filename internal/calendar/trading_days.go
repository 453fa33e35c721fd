package calendar

import (
	"time"

	"GapSentinel/internal/model"
)

// maxStep bounds the search so a calendar that never opens cannot loop forever.
const maxStep = 366

// TradingDays holds the sessions surrounding a target date.
type TradingDays struct {
	Previous time.Time
	Target   time.Time
	Next     time.Time
}

// LocateTradingDays finds the trading days immediately before and after target.
// The target itself is kept as given, even when it is not a trading day.
func LocateTradingDays(cal Calendar, target time.Time) TradingDays {
	target = model.Day(target)
	return TradingDays{
		Previous: PreviousTradingDay(cal, target),
		Target:   target,
		Next:     NextTradingDay(cal, target),
	}
}

// PreviousTradingDay returns the closest trading day strictly before date.
func PreviousTradingDay(cal Calendar, date time.Time) time.Time {
	return step(cal, model.Day(date), -1)
}

// NextTradingDay returns the closest trading day strictly after date.
func NextTradingDay(cal Calendar, date time.Time) time.Time {
	return step(cal, model.Day(date), 1)
}

// SessionsBefore steps back n trading days from date.
func SessionsBefore(cal Calendar, date time.Time, n int) time.Time {
	d := model.Day(date)
	for i := 0; i < n; i++ {
		d = step(cal, d, -1)
	}
	return d
}

// CountSessions returns the number of trading days in the closed range [from, to].
func CountSessions(cal Calendar, from, to time.Time) int {
	from, to = model.Day(from), model.Day(to)
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if cal.IsTradingDay(d) {
			n++
		}
	}
	return n
}

func step(cal Calendar, from time.Time, dir int) time.Time {
	d := from
	for i := 0; i < maxStep; i++ {
		d = d.AddDate(0, 0, dir)
		if cal.IsTradingDay(d) {
			return d
		}
	}
	return d
}
