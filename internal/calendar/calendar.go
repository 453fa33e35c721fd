// Package calendar decides which calendar dates are trading sessions.
//
// Stepping is calendar-day granular. Holiday awareness is an implementation
// detail of the Calendar; the metrics calculator only sees the resolved dates.
package calendar

import (
	"fmt"
	"time"

	"GapSentinel/internal/model"
)

// Calendar reports whether the market is assumed open on a date.
type Calendar interface {
	IsTradingDay(date time.Time) bool
}

// Weekdays treats every Monday through Friday as a trading day.
type Weekdays struct{}

func (Weekdays) IsTradingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// Holidays is a weekday calendar with a fixed set of market closures.
type Holidays struct {
	closed map[string]struct{}
}

// NewHolidays builds a calendar from YYYY-MM-DD closure dates.
func NewHolidays(dates []string) (*Holidays, error) {
	h := &Holidays{closed: make(map[string]struct{}, len(dates))}
	for _, s := range dates {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("holiday: %w", err)
		}
		h.closed[d.Format(model.DateLayout)] = struct{}{}
	}
	return h, nil
}

func (h *Holidays) IsTradingDay(date time.Time) bool {
	if !(Weekdays{}).IsTradingDay(date) {
		return false
	}
	_, closed := h.closed[date.Format(model.DateLayout)]
	return !closed
}

// Len returns the number of configured closures.
func (h *Holidays) Len() int { return len(h.closed) }

// New returns a Holidays calendar when closures are configured, Weekdays otherwise.
func New(holidays []string) (Calendar, error) {
	if len(holidays) == 0 {
		return Weekdays{}, nil
	}
	return NewHolidays(holidays)
}
