package tmpldb

import (
	"errors"
	"fmt"
)

// Sentinel errors for database operations.
var (
	ErrRenderFailed        = errors.New("tmpldb: template render failed")
	ErrCacheMiss           = errors.New("tmpldb: no usable record file")
	ErrFingerprintMismatch = errors.New("tmpldb: record file fingerprint mismatch")
	ErrCorruptRecord       = errors.New("tmpldb: corrupt record file")
	ErrInvalidDescriptor   = errors.New("tmpldb: invalid descriptor type")
)

// RenderError identifies the template that failed during Initialize.
type RenderError struct {
	Descriptor string // fully qualified descriptor type name
	Template   string // concrete template type name
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("tmpldb: render %s for %s: %v", e.Template, e.Descriptor, e.Err)
}

// Unwrap exposes both the sentinel and the underlying template error.
func (e *RenderError) Unwrap() []error {
	return []error{ErrRenderFailed, e.Err}
}

// IsRenderError checks if err is a template render failure.
func IsRenderError(err error) bool {
	return errors.Is(err, ErrRenderFailed)
}

// IsCacheMiss checks if err means a record file could not be reused.
// Fingerprint mismatches and corrupt payloads count as misses.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss) ||
		errors.Is(err, ErrFingerprintMismatch) ||
		errors.Is(err, ErrCorruptRecord)
}
