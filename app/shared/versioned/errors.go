package versioned

import (
	"errors"
	"fmt"
)

// NotFoundVersion is reported alongside ErrNotFound.
const NotFoundVersion int64 = -1

var (
	// ErrNotFound indicates the record does not exist. Never retried.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict indicates the stored version differs from the expected one.
	// It is the only error the Runner retries.
	ErrVersionConflict = errors.New("version conflict")
)

// ConflictError reports the version the caller expected and the one that is stored.
type ConflictError struct {
	Expected int64
	Current  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, current %d", e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// ExhaustedError is returned once the retry budget is spent on conflicts.
// The caller has to re-fetch before submitting again.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: stale, please refresh (gave up after %d attempts): %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// CurrentVersion extracts the stored version from a conflict error.
func CurrentVersion(err error) (int64, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Current, true
	}
	return 0, false
}
