package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// RESTSource implements BarSource against a generic JSON bars endpoint.
type RESTSource struct {
	APIKey string

	http   *httpClient
	logger zerolog.Logger
}

// NewRESTSource creates a source for baseURL with an optional bearer API key.
func NewRESTSource(baseURL, apiKey string, opts HTTPOptions) *RESTSource {
	logger := log.With().Str("component", "rest_source").Logger()
	return &RESTSource{
		APIKey: apiKey,
		http:   newHTTPClient(strings.TrimRight(baseURL, "/"), opts, logger),
		logger: logger,
	}
}

func (s *RESTSource) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars endpoint.
type restBar struct {
	Timestamp int64           `json:"timestamp"`
	Date      string          `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

func (b restBar) day() (time.Time, error) {
	if b.Date != "" {
		return model.ParseDate(b.Date)
	}
	return model.Day(time.Unix(b.Timestamp, 0).UTC()), nil
}

func (s *RESTSource) FetchDailyBars(ctx context.Context, symbol string, end time.Time, days int) ([]model.DailyBar, error) {
	from, to := window(end, days)
	params := map[string]string{
		"symbol": symbol,
		"from":   from.Format(model.DateLayout),
		"to":     to.Format(model.DateLayout),
	}
	var headers map[string]string
	if s.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + s.APIKey}
	}

	body, err := s.http.get(ctx, "/api/v1/bars/daily", params, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	var raw []restBar
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bars %s: %w", symbol, err)
	}

	bars := make([]model.DailyBar, 0, len(raw))
	for _, rb := range raw {
		d, err := rb.day()
		if err != nil {
			return nil, fmt.Errorf("bars %s: %w", symbol, err)
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return clip(bars, from, to), nil
}
