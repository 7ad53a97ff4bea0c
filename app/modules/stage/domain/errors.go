package stagedomain

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every malformed-input error.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidSegmentTime = fmt.Errorf("%w: invalid segment time", ErrValidation)
	ErrUnknownSegment     = fmt.Errorf("%w: unknown segment", ErrValidation)
	ErrUnknownKind        = fmt.Errorf("%w: unknown stage kind", ErrValidation)
	ErrNoSegments         = fmt.Errorf("%w: stage needs at least one segment", ErrValidation)
	ErrDuplicateSegment   = fmt.Errorf("%w: duplicate segment", ErrValidation)
	ErrUnknownEntry       = fmt.Errorf("%w: entry is not part of this stage", ErrValidation)
)

var (
	// ErrNotFinals rejects lives operations on a stage that does not run the lives engine.
	ErrNotFinals = errors.New("stage is not a finals stage")

	// ErrSegmentAlreadyApplied rejects applying a finals segment twice.
	ErrSegmentAlreadyApplied = errors.New("segment already applied")

	// ErrSegmentIncomplete rejects applying a segment before every active competitor has a valid time.
	ErrSegmentIncomplete = errors.New("segment is missing times for active competitors")

	// ErrResetNotAllowed rejects a lives reset when the active count is not a reset threshold.
	ErrResetNotAllowed = errors.New("lives reset not allowed at this active count")

	// ErrEntryEliminated rejects operations on an entry that is already out.
	ErrEntryEliminated = errors.New("entry already eliminated")

	// ErrStageCompleted rejects changes once a champion has been declared.
	ErrStageCompleted = errors.New("stage already completed")
)
