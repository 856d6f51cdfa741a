// Package clients holds helpers shared by the generation service clients.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	"github.com/zatekoja/clinicalrag/pkg/retry"
)

// StatusError is a non-2xx response from a generation service.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s request failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClassifyStatus returns a StatusError for a non-2xx status, marked permanent
// unless the status is retryable. It returns nil for 2xx.
func ClassifyStatus(provider string, statusCode int, body string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	body = TruncateBody(body, maxBodyBytes)
	err := &StatusError{Provider: provider, StatusCode: statusCode, Body: body}
	if err.Retryable() {
		return err
	}
	return retry.Permanent(err)
}

const maxBodyBytes = 300

// TruncateBody cuts body to at most n bytes without splitting a UTF-8 sequence.
func TruncateBody(body string, n int) string {
	if len(body) <= n {
		return body
	}
	for n > 0 && !utf8.RuneStart(body[n]) {
		n--
	}
	return body[:n]
}

// NewLimiter returns a limiter admitting rpm requests per minute with the
// given burst, or nil when rpm is not positive.
func NewLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// Wait blocks on limiter, recording the time spent. A nil limiter never blocks.
func Wait(ctx context.Context, limiter *rate.Limiter, provider, model string) error {
	if limiter == nil {
		return nil
	}
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	observability.RecordRateLimitWait(ctx, provider, model, time.Since(start))
	return nil
}

// RetryConfig returns the retry policy for maxAttempts attempts.
func RetryConfig(maxAttempts int) retry.Config {
	cfg := retry.DefaultConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	return cfg
}
