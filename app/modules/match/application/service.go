package matchservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	matchdb "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MatchService implements the Service interface.
type MatchService struct {
	repo     matchdb.Repository
	resolver SideResolver
	runner   *versioned.Runner
	audit    audit.Sink
	logger   *slog.Logger
	metrics  observability.OperationMetrics
	tracer   trace.Tracer
	db       *bun.DB
	now      func() time.Time
}

// NewMatchService creates a new MatchService.
func NewMatchService(
	repo matchdb.Repository,
	resolver SideResolver,
	runner *versioned.Runner,
	auditSink audit.Sink,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *MatchService {
	return &MatchService{
		repo:     repo,
		resolver: resolver,
		runner:   runner,
		audit:    auditSink,
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
	s *MatchService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx = observability.EnsureCorrelationID(ctx)
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("match_id", identifier),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, operationName+" triggered",
		slog.String("operation", operationName),
		slog.String("match_id", identifier),
		observability.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("match_id", identifier),
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
			slog.String("match_id", identifier),
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
			slog.String("match_id", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, operationName+" completed successfully",
			slog.String("operation", operationName),
			slog.String("match_id", identifier),
			observability.ExtractCorrelationID(ctx),
		)
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *MatchService,
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

func toView(m *matchdb.Match) *MatchView {
	snap := m.Snapshot()
	v := &MatchView{
		ID:          m.ID,
		StageKey:    m.StageKey,
		Side1UserID: m.Side1UserID,
		Side2UserID: m.Side2UserID,
		State:       snap.State(),
		Canonical:   m.Canonical.Clone(),
		Version:     m.Version,
	}
	if snap.Side1 != nil {
		v.Side1Values = snap.Side1.Values.Clone()
	}
	if snap.Side2 != nil {
		v.Side2Values = snap.Side2.Values.Clone()
	}
	return v
}
