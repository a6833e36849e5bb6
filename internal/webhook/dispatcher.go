package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/sony/gobreaker"
)

// errDeliveryFailed marks a delivery that used up its attempts
var errDeliveryFailed = errors.New("webhook delivery failed")

// Dispatcher handles webhook delivery with retry logic
type Dispatcher struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewDispatcher creates a new webhook dispatcher. The breaker opens after five
// consecutive failed deliveries and probes again after a minute.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "job-webhook",
			MaxRequests: 2,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Webhook circuit breaker changed state",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Send delivers payload with retries. The returned log is always non-nil.
func (d *Dispatcher) Send(ctx context.Context, webhook model.Webhook, payload JobPayload, jobID string) (*model.DeliveryLog, error) {
	delivery := &model.DeliveryLog{
		JobID:       jobID,
		WebhookURL:  webhook.URL,
		Attempts:    make([]model.DeliveryAttempt, 0),
		FinalStatus: model.DeliveryStatusRetrying,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, d.deliverWithRetry(ctx, webhook, payload, delivery)
	})

	delivery.CompletedAt = time.Now().UTC()
	if err != nil {
		delivery.FinalStatus = model.DeliveryStatusFailed
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("Circuit breaker is open, skipping webhook delivery",
				"job_id", jobID,
				"webhook_url", webhook.URL,
				"circuit_state", d.breaker.State().String(),
			)
		}
		return delivery, err
	}

	delivery.FinalStatus = model.DeliveryStatusDelivered
	return delivery, nil
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, webhook model.Webhook, payload JobPayload, delivery *model.DeliveryLog) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	retryStrategy := NewRetryStrategy(webhook.Retry)

	for attempt := 1; attempt <= retryStrategy.GetMaxAttempts(); attempt++ {
		slog.Info("Attempting webhook delivery",
			"job_id", delivery.JobID,
			"webhook_url", webhook.URL,
			"attempt", attempt,
			"max_attempts", retryStrategy.GetMaxAttempts(),
		)

		result, header, err := d.deliver(ctx, webhook, body)
		result.AttemptNumber = attempt
		delivery.Attempts = append(delivery.Attempts, result)

		if err == nil {
			slog.Info("Webhook delivered successfully",
				"job_id", delivery.JobID,
				"attempt", attempt,
				"status_code", result.StatusCode,
			)
			return nil
		}

		if !retryStrategy.ShouldRetry(attempt, result.StatusCode, err) {
			slog.Error("Webhook delivery failed",
				"job_id", delivery.JobID,
				"webhook_url", webhook.URL,
				"attempt", attempt,
				"status_code", result.StatusCode,
				"error", result.Error,
			)
			return fmt.Errorf("%w after %d attempts: %s", errDeliveryFailed, attempt, result.Error)
		}

		delay := retryStrategy.DelayFor(attempt, header)
		slog.Warn("Webhook delivery failed, retrying",
			"job_id", delivery.JobID,
			"attempt", attempt,
			"next_retry_ms", delay.Milliseconds(),
			"error", result.Error,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w after %d attempts", errDeliveryFailed, retryStrategy.GetMaxAttempts())
}

// deliver performs a single delivery attempt
func (d *Dispatcher) deliver(ctx context.Context, webhook model.Webhook, body []byte) (model.DeliveryAttempt, http.Header, error) {
	start := time.Now()
	attempt := model.DeliveryAttempt{
		Timestamp: start.UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, webhook.Method, webhook.URL, bytes.NewReader(body))
	if err != nil {
		attempt.Error = fmt.Sprintf("Failed to create request: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		attempt.Error = fmt.Sprintf("Request failed: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, nil, err
	}
	defer resp.Body.Close()

	// response bodies are only kept for diagnostics
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "error", err)
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ResponseBody = string(bodyBytes)
	attempt.DurationMs = time.Since(start).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		attempt.Error = fmt.Sprintf("Webhook returned status %d", resp.StatusCode)
		return attempt, resp.Header, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return attempt, resp.Header, nil
}

// GetCircuitBreakerState returns the current circuit breaker state
func (d *Dispatcher) GetCircuitBreakerState() string {
	return d.breaker.State().String()
}
