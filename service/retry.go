package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// withConflictRetry runs fn and retries it with exponential backoff while it
// fails with ErrConcurrentMutationConflict. Any other error stops immediately.
func withConflictRetry(ctx context.Context, attempts int, operation string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	if attempts < 0 {
		attempts = 0
	}
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConcurrentMutationConflict) {
			log.WithFields(log.Fields{
				"operation": operation,
				"attempt":   attempt,
				"error":     err,
			}).Warn("Ledger conflict, retrying")
			return err
		}
		return backoff.Permanent(err)
	}, bounded)
}
