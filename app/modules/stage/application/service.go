package stageservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application/parsers"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings are the scoring constants of a tournament.
type Settings struct {
	MaxPoints       int
	MinPoints       int
	StartingLives   int
	ResetThresholds []int
	// RecalcWorkers bounds how many entries a recalculation commits at once.
	RecalcWorkers int
}

// StageService implements the Service interface.
type StageService struct {
	repo      stagedb.Repository
	stages    versioned.Store[string, *stagedb.Stage]
	entries   versioned.Store[uuid.UUID, *stagedb.StageEntry]
	runner    *versioned.Runner
	audit     audit.Sink
	scheduler RecalculationScheduler
	parsers   parsers.ParserFactory
	engine    stagedomain.LivesEngine
	settings  Settings
	logger    *slog.Logger
	metrics   observability.OperationMetrics
	tracer    trace.Tracer
	db        *bun.DB
	now       func() time.Time
}

// NewStageService creates a new StageService. A nil scheduler makes every
// time change recalculate the stage inline.
func NewStageService(
	repo stagedb.Repository,
	runner *versioned.Runner,
	auditSink audit.Sink,
	scheduler RecalculationScheduler,
	parserFactory parsers.ParserFactory,
	settings Settings,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *StageService {
	if settings.RecalcWorkers <= 0 {
		settings.RecalcWorkers = 1
	}
	return &StageService{
		repo:      repo,
		stages:    stagedb.StageStore(repo),
		entries:   stagedb.EntryStore(repo),
		runner:    runner,
		audit:     auditSink,
		scheduler: scheduler,
		parsers:   parserFactory,
		engine: stagedomain.LivesEngine{
			StartingLives:   settings.StartingLives,
			ResetThresholds: settings.ResetThresholds,
		},
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		now:      time.Now,
	}
}

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *StageService,
	ctx context.Context,
	operationName string,
	stageKey string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx = observability.EnsureCorrelationID(ctx)
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("stage_key", stageKey),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, operationName+" triggered",
		slog.String("operation", operationName),
		slog.String("stage_key", stageKey),
		observability.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("stage_key", stageKey),
				observability.ExtractCorrelationID(ctx),
				observability.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			observability.ExtractCorrelationID(ctx),
			slog.String("operation", operationName),
			slog.String("stage_key", stageKey),
			observability.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			observability.ExtractCorrelationID(ctx),
			slog.String("operation", operationName),
			slog.String("stage_key", stageKey),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, operationName+" completed successfully",
			slog.String("operation", operationName),
			slog.String("stage_key", stageKey),
			observability.ExtractCorrelationID(ctx),
		)
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *StageService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}

func toStageView(st *stagedb.Stage) *StageView {
	v := &StageView{
		Key:             st.Key,
		Kind:            st.Kind,
		Segments:        append([]string(nil), st.Segments...),
		AppliedSegments: append([]string(nil), st.AppliedSegments...),
		Resets:          st.Resets,
		Completed:       st.Completed,
		Version:         st.Version,
	}
	if st.ChampionEntryID != nil {
		id := *st.ChampionEntryID
		v.ChampionEntryID = &id
	}
	return v
}

func toEntryView(e *stagedb.StageEntry) EntryView {
	v := EntryView{
		ID:                e.ID,
		CompetitorID:      e.CompetitorID,
		Order:             e.Order,
		Times:             make(map[string]string, len(e.Times)),
		Lives:             e.Lives,
		Eliminated:        e.Eliminated,
		ManualElimination: e.ManualElimination,
		Version:           e.Version,
	}
	for k, t := range e.Times {
		v.Times[k] = t
	}
	if total, ok := e.Total(); ok {
		v.Total = &total
	}
	if e.Score != nil {
		score := *e.Score
		v.Score = &score
	}
	if e.Rank != nil {
		rank := *e.Rank
		v.Rank = &rank
	}
	return v
}

// sortStandings puts ranked entries first by rank, then the rest by enumeration order.
func sortStandings(entries []EntryView) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Rank != nil && b.Rank != nil:
			return *a.Rank < *b.Rank
		case a.Rank != nil:
			return true
		case b.Rank != nil:
			return false
		default:
			return a.Order < b.Order
		}
	})
}

func (s *StageService) appendAudit(ctx context.Context, e audit.Event) {
	audit.AppendOrLog(ctx, s.audit, s.logger, e)
}

// competitors projects entries for the lives engine.
func competitors(entries []*stagedb.StageEntry) []stagedomain.Competitor {
	out := make([]stagedomain.Competitor, len(entries))
	for i, e := range entries {
		out[i] = e.Competitor()
	}
	return out
}

func parseEntryIDs(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}
