package matchdb

import (
	"context"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for match persistence.
type Repository interface {
	versioned.Store[uuid.UUID, *Match]

	// Create inserts a new match at version 0.
	Create(ctx context.Context, db bun.IDB, match *Match) error

	// InsertReport appends a submission and supersedes the side's previous ones.
	InsertReport(ctx context.Context, db bun.IDB, report *MatchReport) error

	// ListReports returns the full submission history, oldest first.
	ListReports(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]MatchReport, error)

	// LinkAccount records that linked may act for primary.
	LinkAccount(ctx context.Context, db bun.IDB, primaryUserID, linkedUserID string) error

	// LinkedPrimaries returns the users that userID may act for.
	LinkedPrimaries(ctx context.Context, db bun.IDB, userID string) ([]string, error)
}
