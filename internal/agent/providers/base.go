package providers

import (
	"context"
	"time"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/backoff"
)

// BaseProvider holds the name and retry policy shared by adapters.
type BaseProvider struct {
	name     string
	attempts int
	policy   backoff.Policy
}

// NewBaseProvider creates a base provider. maxRetries is the number of
// extra attempts after a retryable failure; zero or less makes one attempt.
// retryDelay is the first backoff step and defaults to one second; later
// steps double up to 30s.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	policy := backoff.DefaultPolicy()
	if retryDelay > 0 {
		policy.Initial = retryDelay
	}
	return BaseProvider{
		name:     name,
		attempts: max(maxRetries, 0) + 1,
		policy:   policy,
	}
}

// Name returns the provider identifier.
func (b *BaseProvider) Name() string {
	return b.name
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// attempts run out.
func (b *BaseProvider) Retry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, b.policy, b.attempts, IsRetryable, op)
	return err
}
