package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// DefaultYahooBaseURL is the public Yahoo Finance chart host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource implements BarSource using the Yahoo Finance chart API.
type YahooSource struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	http   *httpClient
	logger zerolog.Logger
}

// NewYahooSource creates a Yahoo chart source. An empty baseURL selects the public host.
func NewYahooSource(baseURL string, opts HTTPOptions) *YahooSource {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	logger := log.With().Str("component", "yahoo").Logger()
	return &YahooSource{
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
		},
		http:   newHTTPClient(baseURL, opts, logger),
		logger: logger,
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

func (s *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := s.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *YahooSource) FetchDailyBars(ctx context.Context, symbol string, end time.Time, days int) ([]model.DailyBar, error) {
	from, to := window(end, days)
	params := map[string]string{
		"interval": "1d",
		"period1":  strconv.FormatInt(from.Unix(), 10),
		"period2":  strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10),
		"events":   "history",
	}
	path := "/v8/finance/chart/" + url.PathEscape(s.yahooSymbol(symbol))

	s.logger.Debug().Str("symbol", symbol).Time("from", from).Time("to", to).Msg("fetching daily bars")
	body, err := s.http.get(ctx, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	bars, err := parseYahooChart(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	bars = clip(bars, from, to)
	s.logger.Debug().Str("symbol", symbol).Int("count", len(bars)).Msg("fetched daily bars")
	return bars, nil
}

func parseYahooChart(body []byte) ([]model.DailyBar, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.New("no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.DailyBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || c == nil {
			continue // null rows (holidays, halted sessions)
		}
		bar := model.DailyBar{
			// shift into exchange local time before truncating to the date
			Date:  model.Day(time.Unix(ts+result.Meta.GMTOffset, 0).UTC()),
			Open:  toDecimal(o),
			High:  toDecimal(h),
			Low:   toDecimal(l),
			Close: toDecimal(c),
		}
		if v := at(quote.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func toDecimal(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v).Round(4)
}
