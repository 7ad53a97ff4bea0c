package matchdb

import (
	"fmt"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
)

// ErrNotFound is returned when a match is not found.
var ErrNotFound = fmt.Errorf("match %w", versioned.ErrNotFound)
