package model

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RetryPolicy is the exponential backoff applied to webhook deliveries
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SetDefaults fills unset fields: 3 attempts, 1s doubling up to 30s
func (p *RetryPolicy) SetDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
}

// Budget is the longest a full delivery can take when every attempt runs into
// attemptTimeout and every pause is the longest allowed
func (p RetryPolicy) Budget(attemptTimeout time.Duration) time.Duration {
	p.SetDefaults()
	return time.Duration(p.MaxAttempts)*attemptTimeout + time.Duration(p.MaxAttempts-1)*p.MaxDelay
}

// Webhook is the target that receives job completion notifications
type Webhook struct {
	URL     string
	Method  string
	Headers map[string]string
	Retry   RetryPolicy
}

// Validate checks the URL and fills defaults for method and retries
func (w *Webhook) Validate() error {
	if w.URL == "" {
		return errors.New("webhook URL is required")
	}

	parsedURL, err := url.Parse(w.URL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("webhook URL must start with http:// or https://")
	}
	if parsedURL.Host == "" {
		return errors.New("webhook URL has no host")
	}

	w.Method = strings.ToUpper(w.Method)
	switch w.Method {
	case "":
		w.Method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return fmt.Errorf("unsupported webhook method %q", w.Method)
	}

	w.Retry.SetDefaults()
	return nil
}
