package matchservice

import (
	"context"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	matchidentity "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/identity"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service defines the interface for the match service.
type Service interface {
	// CreateMatch registers a head-to-head pairing at version 0.
	CreateMatch(ctx context.Context, req CreateMatchRequest) (MatchResult, error)

	// GetMatch returns the match and its reconciliation state.
	GetMatch(ctx context.Context, matchID uuid.UUID) (MatchResult, error)

	// SubmitReport accepts one side's report and reconciles it with the other side's.
	SubmitReport(ctx context.Context, req SubmitReportRequest) (ReportResult, error)

	// LinkAccount lets linkedUserID report on behalf of primaryUserID.
	LinkAccount(ctx context.Context, primaryUserID, linkedUserID string) (LinkResult, error)
}

// SideResolver maps a submitter onto the sides they may report for.
type SideResolver interface {
	Resolve(ctx context.Context, db bun.IDB, submitter matchidentity.Submitter, parties matchidentity.Parties) (matchdomain.SideSet, error)
}

type CreateMatchRequest struct {
	StageKey    string
	Side1UserID string
	Side2UserID string
}

// SubmitReportRequest is one side's report. Side may be SideNone when the
// submitter maps to exactly one side. A nil ExpectedVersion means "latest".
type SubmitReportRequest struct {
	MatchID         uuid.UUID
	Side            matchdomain.Side
	Values          matchdomain.Values
	Submitter       matchidentity.Submitter
	ExpectedVersion *int64
}

// MatchView is a read model of a match.
type MatchView struct {
	ID          uuid.UUID
	StageKey    string
	Side1UserID string
	Side2UserID string
	State       matchdomain.State
	Side1Values matchdomain.Values
	Side2Values matchdomain.Values
	Canonical   matchdomain.Values
	Version     int64
}

// ReportOutcome is the result of an accepted report. A disputed State is an
// accepted report, not a failure.
type ReportOutcome struct {
	MatchID     uuid.UUID
	Side        matchdomain.Side
	Values      matchdomain.Values
	State       matchdomain.State
	Version     int64
	Changed     bool
	Canonical   matchdomain.Values
	Side1Values matchdomain.Values
	Side2Values matchdomain.Values
}

type LinkOutcome struct {
	PrimaryUserID string
	LinkedUserID  string
}

type (
	MatchResult  = results.OperationResult[*MatchView, error]
	ReportResult = results.OperationResult[*ReportOutcome, error]
	LinkResult   = results.OperationResult[*LinkOutcome, error]
)
