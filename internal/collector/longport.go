package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
)

// maxLongportCount is the largest candlestick count the quote API accepts.
const maxLongportCount = 1000

// LongportCredentials are the OpenAPI keys of a Longport brokerage account.
type LongportCredentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportSource implements BarSource over a Longport quote connection.
// The connection is opened by NewLongportSource and must be released with Close.
type LongportSource struct {
	quoteCtx *quote.QuoteContext
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewLongportSource connects to the Longport quote service. Bars are dated in loc.
func NewLongportSource(creds LongportCredentials, loc *time.Location) (*LongportSource, error) {
	if creds.AppKey == "" || creds.AppSecret == "" || creds.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}
	if loc == nil {
		loc = time.UTC
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	quoteCtx, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote connect: %w", err)
	}

	return &LongportSource{
		quoteCtx: quoteCtx,
		location: loc,
		now:      time.Now,
		logger:   log.With().Str("component", "longport").Logger(),
	}, nil
}

func (s *LongportSource) Name() string { return "longport" }

// Close releases the quote connection.
func (s *LongportSource) Close() error {
	if s.quoteCtx == nil {
		return nil
	}
	s.logger.Info().Msg("closing longport quote connection")
	return s.quoteCtx.Close()
}

// longportSymbol maps a bare US ticker to Longport's SYMBOL.MARKET notation.
func longportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

// candleCount sizes a latest-N candlestick request so it reaches back to from.
func candleCount(from, now time.Time) int32 {
	n := calendar.CountSessions(calendar.Weekdays{}, from, now) + 5
	if n > maxLongportCount {
		n = maxLongportCount
	}
	return int32(n)
}

func (s *LongportSource) FetchDailyBars(ctx context.Context, symbol string, end time.Time, days int) ([]model.DailyBar, error) {
	if s.quoteCtx == nil {
		return nil, errors.New("longport quote context is nil")
	}
	from, to := window(end, days)
	count := candleCount(from, s.now())

	sticks, err := s.quoteCtx.Candlesticks(ctx, longportSymbol(symbol), quote.PeriodDay, count, quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", symbol, err)
	}

	bars := make([]model.DailyBar, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil {
			continue
		}
		bars = append(bars, model.DailyBar{
			Date:   model.Day(time.Unix(stick.Timestamp, 0).In(s.location)),
			Open:   deref(stick.Open),
			High:   deref(stick.High),
			Low:    deref(stick.Low),
			Close:  deref(stick.Close),
			Volume: stick.Volume,
		})
	}
	bars = clip(bars, from, to)
	if len(bars) == 0 && len(sticks) == maxLongportCount {
		s.logger.Warn().Str("symbol", symbol).Time("from", from).Msg("window older than the candlestick history limit")
	}
	return bars, nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
