package versioned

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Record is anything carrying an optimistic-lock version.
type Record interface {
	CurrentVersion() int64
}

// Store is the per-entity capability ApplyUpdate works against.
//
// Read returns an error wrapping ErrNotFound when the record is absent.
// WriteIfVersion persists record only if the stored version still equals expected,
// bumping it by one, and returns the new version. A lost race returns a
// *ConflictError carrying the version that won.
type Store[K comparable, T Record] interface {
	Read(ctx context.Context, db bun.IDB, id K) (T, error)
	WriteIfVersion(ctx context.Context, db bun.IDB, id K, expected int64, record T) (int64, error)
}

// Mutation changes a record in place. Errors it returns propagate unchanged.
type Mutation[T Record] func(record T) error

// ApplyUpdate is the check-and-increment primitive.
// The expected version is checked once after the read and again as the
// write-time guard, so a concurrent writer between the two is still caught.
func ApplyUpdate[K comparable, T Record](
	ctx context.Context,
	db bun.IDB,
	store Store[K, T],
	id K,
	expected int64,
	mutate Mutation[T],
) (int64, error) {
	record, err := store.Read(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFoundVersion, err
		}
		return NotFoundVersion, fmt.Errorf("read before update: %w", err)
	}

	current := record.CurrentVersion()
	if current != expected {
		return current, &ConflictError{Expected: expected, Current: current}
	}

	if err := mutate(record); err != nil {
		return current, err
	}

	return store.WriteIfVersion(ctx, db, id, expected, record)
}
