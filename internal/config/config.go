package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"GapSentinel/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. GAPSENTINEL_DATA_SOURCE_PROVIDER.
const EnvPrefix = "GAPSENTINEL"

// DefaultMaxRetries applies when max_retries is absent from every source.
// An explicit 0 disables retries.
const DefaultMaxRetries = 3

// WatchItem is one configured symbol. Date is optional; the scheduler ignores it.
type WatchItem struct {
	Symbol string `yaml:"symbol" validate:"required,uppercase,max=16"`
	Date   string `yaml:"date" validate:"omitempty,datetime=2006-01-02"`
}

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider       string        `yaml:"provider" envconfig:"PROVIDER" validate:"oneof=yahoo rest longport mock"`
		BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required_if=Provider rest"`
		APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
		Timezone       string        `yaml:"timezone" envconfig:"TIMEZONE"`
		WindowDays     int           `yaml:"window_days" envconfig:"WINDOW_DAYS" validate:"gte=20,lte=365"`
		RequestsPerSec float64       `yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC" validate:"gt=0"`
		MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"gte=0,lte=10"`
		Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	} `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Longport struct {
		AppKey      string `yaml:"app_key" envconfig:"APP_KEY"`
		AppSecret   string `yaml:"app_secret" envconfig:"APP_SECRET"`
		AccessToken string `yaml:"access_token" envconfig:"ACCESS_TOKEN"`
	} `yaml:"longport" envconfig:"LONGPORT"`
	Calendar struct {
		Holidays []string `yaml:"holidays" envconfig:"HOLIDAYS" validate:"dive,datetime=2006-01-02"`
	} `yaml:"calendar" envconfig:"CALENDAR"`
	Metrics struct {
		WeekLookback int `yaml:"week_lookback" envconfig:"WEEK_LOOKBACK" validate:"gte=1,lte=20"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Runner struct {
		Parallelism int `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=1,lte=32"`
	} `yaml:"runner" envconfig:"RUNNER"`
	Database struct {
		Driver      string `yaml:"driver" envconfig:"DRIVER" validate:"oneof=sqlite postgres none"`
		SQLitePath  string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
		PostgresDSN string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN" validate:"required_if=Driver postgres"`
	} `yaml:"database" envconfig:"DATABASE"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" envconfig:"DAILY_CRON"`
		StateFile string `yaml:"state_file" envconfig:"STATE_FILE"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Logging struct {
		Level string `yaml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn error"`
	} `yaml:"logging" envconfig:"LOGGING"`
	Proxy     string      `yaml:"proxy" envconfig:"PROXY"`
	Watchlist []WatchItem `yaml:"watchlist" ignored:"true" validate:"dive"`
}

var validate = validator.New()

// Load reads config from a YAML file, then .env, then environment overrides,
// then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.DataSource.MaxRetries = DefaultMaxRetries

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		switch {
		case c.HasLongportCredentials():
			c.DataSource.Provider = "longport"
		case c.DataSource.BaseURL != "":
			c.DataSource.Provider = "rest"
		default:
			c.DataSource.Provider = "yahoo"
		}
	}
	if c.DataSource.Timezone == "" {
		c.DataSource.Timezone = "America/New_York"
	}
	if c.DataSource.WindowDays == 0 {
		c.DataSource.WindowDays = 30
	}
	if c.DataSource.RequestsPerSec == 0 {
		c.DataSource.RequestsPerSec = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Metrics.WeekLookback == 0 {
		c.Metrics.WeekLookback = 5
	}
	if c.Runner.Parallelism == 0 {
		c.Runner.Parallelism = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/gapsentinel.db"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Schedule.StateFile == "" {
		c.Schedule.StateFile = "data/scheduler_state.json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// HasLongportCredentials reports whether all three Longport keys are set.
func (c *Config) HasLongportCredentials() bool {
	return c.Longport.AppKey != "" && c.Longport.AppSecret != "" && c.Longport.AccessToken != ""
}

// TelegramEnabled reports whether run summaries should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks field constraints and the values that need parsing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.LoadLocation(c.DataSource.Timezone); err != nil {
		return fmt.Errorf("data_source.timezone: %w", err)
	}
	if c.DataSource.Provider == "longport" && !c.HasLongportCredentials() {
		return fmt.Errorf("longport.app_key, app_secret and access_token are required for the longport provider")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.DailyCron); err != nil {
		return fmt.Errorf("schedule.daily_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Location returns the exchange timezone used to date bars.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DataSource.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Requests returns the dated watchlist entries as metrics requests.
func (c *Config) Requests() ([]model.MetricsRequest, error) {
	var reqs []model.MetricsRequest
	for _, item := range c.Watchlist {
		if item.Date == "" {
			continue
		}
		req, err := model.NewMetricsRequest(item.Symbol, item.Date)
		if err != nil {
			return nil, fmt.Errorf("watchlist %s: %w", item.Symbol, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Symbols returns the distinct watchlist symbols in configured order.
func (c *Config) Symbols() []string {
	seen := make(map[string]bool, len(c.Watchlist))
	var out []string
	for _, item := range c.Watchlist {
		if seen[item.Symbol] {
			continue
		}
		seen[item.Symbol] = true
		out = append(out, item.Symbol)
	}
	return out
}
