package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
)

// ErrFetchExhausted is matched by every ExhaustedError.
var ErrFetchExhausted = errors.New("fetch exhausted")

// ExhaustedError reports a URL that kept failing after all attempts.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrFetchExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

type Config struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// Client issues GET requests against off-chain metric endpoints.
// On-chain reads never go through it.
type Client struct {
	http     *resty.Client
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	http := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{
		http:     http,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		logger:   logger,
	}
}

// Get returns the body of the first successful response.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := withRetry(ctx, c.attempts, c.delay, func(ctx context.Context) error {
		resp, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return &StatusError{Status: resp.StatusCode(), Body: truncate(resp.String(), 256)}
		}
		body = resp.Body()
		return nil
	}, func(attempt int, err error) {
		c.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("attempts", c.attempts),
			zap.Error(err),
		)
	})
	if err != nil {
		var exhausted *ExhaustedError
		if errors.As(err, &exhausted) {
			exhausted.URL = url
		}
		return nil, err
	}
	return body, nil
}

func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error, onFail func(int, error)) error {
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if onFail != nil {
			onFail(attempt, last)
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
