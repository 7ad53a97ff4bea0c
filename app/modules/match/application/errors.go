package matchservice

import (
	"errors"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
)

// Domain errors for the match service.
// These are returned as failure results, not infrastructure errors.
var (
	// ErrUnauthorized indicates the submitter is not a party to the match.
	ErrUnauthorized = errors.New("submitter is not a party to this match")

	// ErrSideRequired indicates an admin report did not name the side it reports for.
	ErrSideRequired = errors.New("side is required when the submitter may report for both sides")

	// ErrInvalidParties indicates a match was created with a missing or duplicated competitor.
	ErrInvalidParties = errors.New("a match needs two distinct competitors")

	ErrValidation     = matchdomain.ErrValidation
	ErrMatchCompleted = matchdomain.ErrMatchCompleted
)

// errNoChange short-circuits the versioned write for an identical re-report.
var errNoChange = errors.New("report unchanged")
