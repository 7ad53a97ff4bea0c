package matchdomain

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every malformed-report error.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidSide   = fmt.Errorf("%w: side must be 1 or 2", ErrValidation)
	ErrEmptyValues   = fmt.Errorf("%w: report has no values", ErrValidation)
	ErrTooManyValues = fmt.Errorf("%w: report has too many values", ErrValidation)
	ErrNegativeValue = fmt.Errorf("%w: report values must be non-negative", ErrValidation)

	// ErrMatchCompleted rejects a report against a match that already has a canonical result.
	ErrMatchCompleted = errors.New("match already completed")
)
