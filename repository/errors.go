package repository

import (
	"errors"
	"fmt"

	"casino/service"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeCheckViolation       = "23514"
)

// storeError classifies a driver error. Serialization failures and deadlocks
// are retryable conflicts, a violated balance CHECK means the write would
// have overdrawn the account, everything else is an unavailable store.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", op, service.ErrConcurrentMutationConflict, err)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w: %w", op, service.ErrInsufficientBalance, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, service.ErrStoreUnavailable, err)
}
