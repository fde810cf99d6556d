package tmpldb

import (
	"errors"
	"fmt"

	"github.com/pthm/tmpldb/lib/encoding"
	"github.com/pthm/tmpldb/lib/store"
)

// wrapStoreError wraps store and encoding package errors with tmpldb
// sentinel errors.
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotExist) {
		return ErrCacheMiss
	}
	if errors.Is(err, encoding.ErrFingerprintMismatch) {
		return fmt.Errorf("%w: %v", ErrFingerprintMismatch, err)
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return fmt.Errorf("%w: %v", ErrCacheMiss, err)
}
