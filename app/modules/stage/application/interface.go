package stageservice

import (
	"context"
	"time"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/google/uuid"
)

// Service defines the interface for the stage service.
type Service interface {
	// CreateStage registers a stage with its kind and required segments.
	CreateStage(ctx context.Context, req CreateStageRequest) (StageResult, error)

	// RegisterEntries adds competitors to a stage. Finals entries start with the configured lives.
	RegisterEntries(ctx context.Context, stageKey string, competitorIDs []string) (EntriesResult, error)

	// SubmitSegmentTime records one entry's raw time for a segment.
	SubmitSegmentTime(ctx context.Context, req SubmitTimeRequest) (TimeResult, error)

	// ImportSegmentTimes records every time of an uploaded XLSX or CSV sheet.
	ImportSegmentTimes(ctx context.Context, req ImportRequest) (ImportResult, error)

	// RecalculateStage recomputes every entry's derived total, score and rank.
	RecalculateStage(ctx context.Context, stageKey string) (RecalculationResult, error)

	// ApplyFinalsSegment runs the lives engine over one completed finals segment.
	ApplyFinalsSegment(ctx context.Context, stageKey, segment, actor string) (SegmentResult, error)

	// ResetLives restores every active finals competitor to the starting lives.
	ResetLives(ctx context.Context, stageKey, actor string) (ResetResult, error)

	// EliminateEntry is the manual elimination override.
	EliminateEntry(ctx context.Context, req EliminateRequest) (EliminateResult, error)

	// GetStandings returns the stage and its entries in ranking order.
	GetStandings(ctx context.Context, stageKey string) (StandingsResult, error)
}

// RecalculationScheduler defers a stage recalculation to a background job.
type RecalculationScheduler interface {
	EnqueueRecalculation(ctx context.Context, stageKey string) error
}

type CreateStageRequest struct {
	Key      string
	Kind     stagedomain.Kind
	Segments []string
}

// SubmitTimeRequest is a single time entered by an official. A nil
// ExpectedVersion means "latest"; a pinned version is never refreshed.
type SubmitTimeRequest struct {
	StageKey        string
	EntryID         uuid.UUID
	Segment         string
	Raw             string
	ExpectedVersion *int64
	SubmittedBy     string
}

type ImportRequest struct {
	StageKey    string
	Filename    string
	Data        []byte
	SubmittedBy string
}

type EliminateRequest struct {
	StageKey        string
	EntryID         uuid.UUID
	ExpectedVersion *int64
	Actor           string
}

// StageView is a read model of a stage.
type StageView struct {
	Key             string
	Kind            stagedomain.Kind
	Segments        []string
	AppliedSegments []string
	Resets          int
	Completed       bool
	ChampionEntryID *uuid.UUID
	Version         int64
}

// EntryView is a read model of a stage entry. Total, Score and Rank are nil when undefined.
type EntryView struct {
	ID                uuid.UUID
	CompetitorID      string
	Order             int
	Times             map[string]string
	Total             *time.Duration
	Score             *int
	Rank              *int
	Lives             int
	Eliminated        bool
	ManualElimination bool
	Version           int64
}

// Standings lists ranked entries by rank, then unranked ones in enumeration order.
type Standings struct {
	Stage   StageView
	Entries []EntryView
}

type TimeOutcome struct {
	StageKey string
	EntryID  uuid.UUID
	Segment  string
	Time     time.Duration
	Version  int64
	Changed  bool
	// Recalculated is set when the stage was re-ranked inline and the
	// standings moved.
	Recalculated bool
}

// ImportRejection is a sheet row or cell that could not be applied.
type ImportRejection struct {
	Line         int
	CompetitorID string
	Segment      string
	Reason       string
}

type ImportOutcome struct {
	StageKey     string
	Applied      int
	Unchanged    int
	Rejected     []ImportRejection
	Recalculated bool
}

// RecalculationOutcome counts what one recalculation pass committed.
type RecalculationOutcome struct {
	StageKey  string
	Updated   int
	Unchanged int
	Stale     []uuid.UUID
	Ranked    int
}

type SegmentOutcome struct {
	StageKey     string
	Segment      string
	Slowest      time.Duration
	LostLife     []uuid.UUID
	Eliminated   []uuid.UUID
	Active       int
	Completed    bool
	Champion     *uuid.UUID
	StageVersion int64
}

type ResetOutcome struct {
	StageKey     string
	Restored     []uuid.UUID
	Active       int
	StageVersion int64
}

type EliminateOutcome struct {
	StageKey  string
	EntryID   uuid.UUID
	Version   int64
	Active    int
	Completed bool
	Champion  *uuid.UUID
}

type (
	StageResult         = results.OperationResult[*StageView, error]
	EntriesResult       = results.OperationResult[[]EntryView, error]
	TimeResult          = results.OperationResult[*TimeOutcome, error]
	ImportResult        = results.OperationResult[*ImportOutcome, error]
	RecalculationResult = results.OperationResult[*RecalculationOutcome, error]
	SegmentResult       = results.OperationResult[*SegmentOutcome, error]
	ResetResult         = results.OperationResult[*ResetOutcome, error]
	EliminateResult     = results.OperationResult[*EliminateOutcome, error]
	StandingsResult     = results.OperationResult[*Standings, error]
)
