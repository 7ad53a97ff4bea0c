package stageservice

import (
	"errors"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
)

// Domain errors for the stage service.
// These are returned as failure results, not infrastructure errors.
var (
	// ErrStaleInput marks an entry whose raw times changed after a
	// recalculation listed it. The entry is skipped; the change that made it
	// stale schedules its own recalculation.
	ErrStaleInput = errors.New("entry inputs changed since the recalculation started")

	// ErrInvalidStageKey indicates a blank, oversized or non-token stage key.
	ErrInvalidStageKey = errors.New("stage key must be 1-100 letters, digits, '-' or '_'")

	// ErrNoCompetitors indicates an entry registration without competitors.
	ErrNoCompetitors = errors.New("at least one competitor is required")

	// ErrDuplicateCompetitor indicates a competitor listed twice in one registration.
	ErrDuplicateCompetitor = errors.New("competitor listed more than once")

	// ErrUnauthorized indicates a request without an admin token.
	ErrUnauthorized = errors.New("admin role required")

	// ErrStageExists indicates a stage key that is already taken.
	ErrStageExists = errors.New("stage already exists")

	// ErrFinalsStarted indicates a registration after the first finals
	// segment was applied.
	ErrFinalsStarted = errors.New("finals already started")

	ErrValidation            = stagedomain.ErrValidation
	ErrUnknownKind           = stagedomain.ErrUnknownKind
	ErrUnknownEntry          = stagedomain.ErrUnknownEntry
	ErrUnknownSegment        = stagedomain.ErrUnknownSegment
	ErrInvalidSegmentTime    = stagedomain.ErrInvalidSegmentTime
	ErrSegmentAlreadyApplied = stagedomain.ErrSegmentAlreadyApplied
	ErrSegmentIncomplete     = stagedomain.ErrSegmentIncomplete
	ErrResetNotAllowed       = stagedomain.ErrResetNotAllowed
	ErrNotFinals             = stagedomain.ErrNotFinals
	ErrEntryEliminated       = stagedomain.ErrEntryEliminated
	ErrStageCompleted        = stagedomain.ErrStageCompleted
)

// errNoChange short-circuits a versioned write that would not change anything.
var errNoChange = errors.New("no change")
