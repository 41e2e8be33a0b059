package crawler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"
)

// RetryPolicy describes the two retry loops of the fetch layer: an inner loop
// over 5xx responses with exponential backoff, and an outer loop over
// transport failures with linear backoff.
type RetryPolicy struct {
	MaxStatusRetries  int
	StatusBackoffBase time.Duration
	MaxAttempts       int
	AttemptDelay      time.Duration
}

// NewRetryPolicy builds a policy with the defaults used against the gallery site.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxStatusRetries:  5,
		StatusBackoffBase: time.Second,
		MaxAttempts:       3,
		AttemptDelay:      2 * time.Second,
	}
}

// RetryStatus reports whether a response with status should be retried after
// retry previous retries.
func (p RetryPolicy) RetryStatus(status, retry int) bool {
	return status >= http.StatusInternalServerError && retry < p.MaxStatusRetries
}

// StatusBackoff returns the wait before status retry number retry (0-based).
func (p RetryPolicy) StatusBackoff(retry int) time.Duration {
	return time.Duration(float64(p.StatusBackoffBase) * math.Pow(2, float64(retry)))
}

// RetryError decides whether a transport error on attempt (1-based) is retried.
func (p RetryPolicy) RetryError(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// AttemptBackoff returns the wait after failed attempt (1-based).
func (p RetryPolicy) AttemptBackoff(attempt int) time.Duration {
	return p.AttemptDelay * time.Duration(attempt)
}
