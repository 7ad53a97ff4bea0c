package stagedb

import (
	"fmt"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
)

var (
	// ErrStageNotFound is returned when a stage is not found.
	ErrStageNotFound = fmt.Errorf("stage %w", versioned.ErrNotFound)

	// ErrEntryNotFound is returned when a stage entry is not found.
	ErrEntryNotFound = fmt.Errorf("stage entry %w", versioned.ErrNotFound)
)
