package logs

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the cache store could not be reached or queried.
	// It is never a cache miss.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAnalysisFailed marks analyzer failures. They are reported to the caller
	// as a failure Analysis and are not persisted.
	ErrAnalysisFailed = errors.New("analysis failed")

	ErrNotFound = errors.New("log record not found")
)

// Unavailable wraps a backend error so that errors.Is(err, ErrStorageUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
