package model

import (
	"testing"
	"time"
)

func TestWebhookValidate(t *testing.T) {
	tests := []struct {
		name    string
		hook    Webhook
		wantErr bool
		method  string
	}{
		{"defaults to post", Webhook{URL: "https://hooks.example.com/x"}, false, "POST"},
		{"lowercase put", Webhook{URL: "http://h/x", Method: "put"}, false, "PUT"},
		{"empty url", Webhook{}, true, ""},
		{"bad scheme", Webhook{URL: "ftp://h/x"}, true, ""},
		{"no host", Webhook{URL: "https:///x"}, true, ""},
		{"get not allowed", Webhook{URL: "https://h/x", Method: "GET"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hook.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.hook.Method != tt.method {
				t.Errorf("Method = %q, want %q", tt.hook.Method, tt.method)
			}
			if err == nil && tt.hook.Retry.MaxAttempts != 3 {
				t.Errorf("retry defaults not applied: %+v", tt.hook.Retry)
			}
		})
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 4 * time.Second}
	if got, want := p.Budget(10*time.Second), 38*time.Second; got != want {
		t.Errorf("Budget() = %v, want %v", got, want)
	}

	var zero RetryPolicy
	if got, want := zero.Budget(time.Second), 3*time.Second+2*30*time.Second; got != want {
		t.Errorf("default Budget() = %v, want %v", got, want)
	}
}
