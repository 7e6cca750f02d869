package sqlitestore

import (
	"errors"
	"fmt"

	"casino/service"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// storeError classifies a driver error. A busy or locked database is a
// retryable conflict; anything else means the store is unavailable.
func storeError(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %w", op, service.ErrConcurrentMutationConflict, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, service.ErrStoreUnavailable, err)
}
