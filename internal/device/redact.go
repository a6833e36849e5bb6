package device

import (
	"context"
	"strings"
)

type secretsKey struct{}

// WithSecrets marks values that must never appear in logs or audit records
// for commands run with the returned context
func WithSecrets(ctx context.Context, secrets ...string) context.Context {
	existing, _ := ctx.Value(secretsKey{}).([]string)
	merged := append(append([]string(nil), existing...), secrets...)
	return context.WithValue(ctx, secretsKey{}, merged)
}

// Redact replaces every secret registered on ctx with ***
func Redact(ctx context.Context, s string) string {
	secrets, _ := ctx.Value(secretsKey{}).([]string)
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return s
}
