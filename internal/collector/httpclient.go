package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the shared HTTP plumbing of the REST-based sources.
type HTTPOptions struct {
	Timeout        time.Duration
	RequestsPerSec float64
	MaxRetries     int
	InitialBackoff time.Duration
	Proxy          string
	UserAgent      string
}

// StatusError is a non-200 response from a data provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// retriable reports whether the provider may succeed on a later attempt.
func (e *StatusError) retriable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// httpClient wraps resty with rate limiting and exponential backoff.
type httpClient struct {
	client     *resty.Client
	limiter    *rate.Limiter
	maxRetries int
	initial    time.Duration
	logger     zerolog.Logger
}

func newHTTPClient(baseURL string, opts HTTPOptions, logger zerolog.Logger) *httpClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout)
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}
	return &httpClient{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		maxRetries: opts.MaxRetries,
		initial:    opts.InitialBackoff,
		logger:     logger,
	}
}

// get performs a rate-limited GET, retrying transport errors, 429 and 5xx.
func (c *httpClient) get(ctx context.Context, path string, params map[string]string, headers map[string]string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetHeaders(headers).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			serr := &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 256)}
			if serr.retriable() {
				return serr
			}
			return backoff.Permanent(serr)
		}
		body = resp.Body()
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = c.initial
	strategy.MaxElapsedTime = 30 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(strategy, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("path", path).Dur("retry_in", wait).Msg("request failed, retrying")
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
