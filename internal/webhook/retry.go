package webhook

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// RetryStrategy handles exponential backoff retry logic
type RetryStrategy struct {
	policy model.RetryPolicy
}

// NewRetryStrategy creates a new retry strategy
func NewRetryStrategy(policy model.RetryPolicy) *RetryStrategy {
	policy.SetDefaults()
	return &RetryStrategy{
		policy: policy,
	}
}

// CalculateDelay returns min(initial * multiplier^(attempt-1), max)
func (rs *RetryStrategy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(rs.policy.InitialDelay) * math.Pow(rs.policy.Multiplier, float64(attempt-1))
	if delay > float64(rs.policy.MaxDelay) {
		return rs.policy.MaxDelay
	}
	return time.Duration(delay)
}

// DelayFor prefers the receiver's Retry-After header, capped at the max delay
func (rs *RetryStrategy) DelayFor(attempt int, header http.Header) time.Duration {
	maxDelay := rs.policy.MaxDelay
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds >= 0 {
		if d := time.Duration(seconds) * time.Second; d < maxDelay {
			return d
		}
		return maxDelay
	}
	return rs.CalculateDelay(attempt)
}

// ShouldRetry reports whether another attempt makes sense. Network errors,
// 5xx, 429 and redirects are retried; other 4xx are not.
func (rs *RetryStrategy) ShouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= rs.policy.MaxAttempts {
		return false
	}

	switch {
	case err != nil && statusCode == 0:
		return true
	case statusCode == http.StatusTooManyRequests:
		return true
	case statusCode >= 500:
		return true
	case statusCode >= 400:
		return false
	case statusCode >= 300:
		return true
	}
	return false
}

// GetMaxAttempts returns the maximum number of attempts
func (rs *RetryStrategy) GetMaxAttempts() int {
	return rs.policy.MaxAttempts
}
