package extract

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// defaultRetryAfter applies when a 429 carries no usable Retry-After.
const defaultRetryAfter = 60 * time.Second

// RateLimitError reports that a provider refused the call with HTTP 429.
// The fallback chain reads RetryAfter to open that strategy's circuit
// instead of retrying it.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError with an explicit retry
// delay. Non-positive delays fall back to defaultRetryAfter.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	d := time.Duration(retryAfterSecs) * time.Second
	if d <= 0 {
		d = defaultRetryAfter
	}
	return &RateLimitError{Provider: provider, RetryAfter: d, Err: err}
}

// RateLimited builds a RateLimitError from a 429 response, honoring the
// Retry-After header in both its delay-seconds and HTTP-date forms.
func RateLimited(provider string, err error, header http.Header) *RateLimitError {
	return &RateLimitError{Provider: provider, RetryAfter: retryAfterFrom(header), Err: err}
}

func retryAfterFrom(h http.Header) time.Duration {
	val := h.Get("Retry-After")
	if val == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs <= 0 {
			return defaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(val); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return defaultRetryAfter
}
