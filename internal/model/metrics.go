package model

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// NotAvailable is the marker printed and stored for a missing value.
const NotAvailable = "N/A"

// MetricsRequest pairs a ticker with the calendar date to analyze.
type MetricsRequest struct {
	Symbol string    `validate:"required,uppercase,max=16"`
	Date   time.Time
}

// NewMetricsRequest parses and validates a (symbol, YYYY-MM-DD) pair.
func NewMetricsRequest(symbol, date string) (MetricsRequest, error) {
	d, err := ParseDate(date)
	if err != nil {
		return MetricsRequest{}, err
	}
	req := MetricsRequest{Symbol: symbol, Date: d}
	if err := req.Validate(); err != nil {
		return MetricsRequest{}, err
	}
	return req, nil
}

// Validate checks the symbol and date of the request.
func (r MetricsRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	return nil
}

func (r MetricsRequest) String() string {
	return r.Symbol + "@" + r.Date.Format(DateLayout)
}

// Percent is a 2-decimal percentage that may be absent.
type Percent struct {
	Value decimal.Decimal
	Valid bool
}

// PercentOf wraps an already rounded value.
func PercentOf(v decimal.Decimal) Percent { return Percent{Value: v, Valid: true} }

// String renders "1.23%" or "N/A".
func (p Percent) String() string {
	if !p.Valid {
		return NotAvailable
	}
	return p.Value.StringFixed(2) + "%"
}

// MetricsResult is the derived record for one (symbol, date) request.
type MetricsResult struct {
	Symbol         string
	Date           time.Time
	OpenPrice      decimal.NullDecimal
	ClosePrice     decimal.NullDecimal
	RelativeVolume decimal.NullDecimal
	Volume         null.Int
	AvgVolume10D   decimal.NullDecimal
	GapToday       Percent
	GapTomorrow    Percent
	ChangeFromOpen Percent
	ChangeForWeek  Percent
}

// EmptyResult returns a result for req with every computed field unavailable.
func EmptyResult(req MetricsRequest) *MetricsResult {
	return &MetricsResult{Symbol: req.Symbol, Date: req.Date}
}

// Field is one labelled, display-formatted value of a result.
type Field struct {
	Label string
	Value string
}

// Fields returns the result in display order with N/A markers applied.
func (r *MetricsResult) Fields() []Field {
	return []Field{
		{"Symbol", r.Symbol},
		{"Date", r.Date.Format(DateLayout)},
		{"Open Price", formatDecimal(r.OpenPrice, -1)},
		{"Close Price", formatDecimal(r.ClosePrice, -1)},
		{"Relative Volume", formatDecimal(r.RelativeVolume, 2)},
		{"Volume", formatInt(r.Volume)},
		{"10-Day Avg Volume", formatDecimal(r.AvgVolume10D, 1)},
		{"Gap Today %", r.GapToday.String()},
		{"Gap Tomorrow %", r.GapTomorrow.String()},
		{"Change From Open %", r.ChangeFromOpen.String()},
		{"Change For Week %", r.ChangeForWeek.String()},
	}
}

// NotAvailableCount counts the computed fields that are missing.
func (r *MetricsResult) NotAvailableCount() int {
	n := 0
	for _, ok := range []bool{
		r.OpenPrice.Valid, r.ClosePrice.Valid, r.RelativeVolume.Valid, r.Volume.Valid,
		r.AvgVolume10D.Valid, r.GapToday.Valid, r.GapTomorrow.Valid,
		r.ChangeFromOpen.Valid, r.ChangeForWeek.Valid,
	} {
		if !ok {
			n++
		}
	}
	return n
}

func formatDecimal(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return NotAvailable
	}
	if places < 0 {
		return d.Decimal.String()
	}
	return d.Decimal.StringFixed(places)
}

func formatInt(v null.Int) string {
	if !v.Valid {
		return NotAvailable
	}
	return fmt.Sprintf("%d", v.ValueOrZero())
}
