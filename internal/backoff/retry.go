package backoff

import "context"

// Retry runs op up to maxAttempts times, sleeping per policy between
// attempts. It stops early when op succeeds, when retryable reports false for
// its error, or when ctx is done. The error returned is op's last error, or
// ctx.Err() if the context ended first. A nil retryable retries everything.
//
// The returned count is the number of attempts made.
func Retry(ctx context.Context, policy Policy, maxAttempts int, retryable func(error) bool, op func() error) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = op()
		if lastErr == nil {
			return attempt, nil
		}
		if retryable != nil && !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == maxAttempts {
			break
		}
		if err := Sleep(ctx, policy.Delay(attempt)); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, lastErr
}
