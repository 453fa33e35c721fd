package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/collector"
	"GapSentinel/internal/config"
	"GapSentinel/internal/recorder"
)

// DefaultConfigPath is used when neither --config nor CONFIG_PATH is given.
const DefaultConfigPath = "configs/config.yaml"

// app carries the loaded configuration between the root command and its subcommands.
type app struct {
	cfg        *config.Config
	configPath string
	logLevel   string
	provider   string
	noColor    bool
}

func (a *app) load() error {
	path := a.configPath
	if path == "" {
		path = DefaultConfigPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.provider != "" {
		cfg.DataSource.Provider = a.provider
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	a.cfg = cfg
	setupLogging(os.Stderr, cfg.Logging.Level, a.noColor)
	log.Debug().Str("path", path).Str("provider", cfg.DataSource.Provider).Msg("config loaded")
	return nil
}

func setupLogging(w io.Writer, level string, noColor bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

func (a *app) calendar() (calendar.Calendar, error) {
	cal, err := calendar.New(a.cfg.Calendar.Holidays)
	if err != nil {
		return nil, err
	}
	if h, ok := cal.(*calendar.Holidays); ok {
		log.Debug().Int("closures", h.Len()).Msg("holiday calendar loaded")
	}
	return cal, nil
}

// source builds the configured bar source. The returned close func releases
// long-lived connections and is never nil.
func (a *app) source() (collector.BarSource, func(), error) {
	ds := a.cfg.DataSource
	opts := collector.HTTPOptions{
		Timeout:        ds.Timeout,
		RequestsPerSec: ds.RequestsPerSec,
		MaxRetries:     ds.MaxRetries,
		Proxy:          a.cfg.Proxy,
	}
	noop := func() {}

	switch ds.Provider {
	case "mock":
		return &collector.MockSource{}, noop, nil
	case "rest":
		return collector.NewRESTSource(ds.BaseURL, ds.APIKey, opts), noop, nil
	case "longport":
		lp := a.cfg.Longport
		src, err := collector.NewLongportSource(collector.LongportCredentials{
			AppKey:      lp.AppKey,
			AppSecret:   lp.AppSecret,
			AccessToken: lp.AccessToken,
		}, a.cfg.Location())
		if err != nil {
			return nil, noop, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				log.Warn().Err(err).Msg("close longport source")
			}
		}, nil
	default:
		return collector.NewYahooSource(ds.BaseURL, opts), noop, nil
	}
}

func (a *app) recorder(ctx context.Context, noStore bool) (recorder.Recorder, error) {
	if noStore {
		return recorder.NewNoopRecorder(), nil
	}
	db := a.cfg.Database
	return recorder.Open(ctx, db.Driver, db.SQLitePath, db.PostgresDSN)
}

func (a *app) analyzer(src collector.BarSource, cal calendar.Calendar) *collector.Analyzer {
	return collector.NewAnalyzer(src, cal, a.cfg.DataSource.WindowDays, a.cfg.Metrics.WeekLookback)
}
