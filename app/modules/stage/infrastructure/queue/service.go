package stagequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// QueueName is the dedicated River queue for stage jobs.
const QueueName = "stage"

// Config tunes the stage queue.
type Config struct {
	MaxWorkers int
	Debounce   time.Duration
}

// Service schedules stage recalculations on River.
type Service struct {
	client   *river.Client[pgx.Tx]
	pool     *pgxpool.Pool
	logger   *slog.Logger
	metrics  observability.OperationMetrics
	debounce time.Duration
	now      func() time.Time
}

// NewService connects a pgx pool, brings River's tables up to date and builds
// the client. The client is not started until Start.
func NewService(ctx context.Context, dsn string, cfg Config, logger *slog.Logger, metrics observability.OperationMetrics, publisher message.Publisher) (*Service, error) {
	ctxLogger := logger.With(
		slog.String("component", "river_queue"),
		slog.String("queue", QueueName),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "queue.initialize")

	// River requires pgx, not database/sql.
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver := riverpgxv5.New(pool)
	migrator, err := rivermigrate.New(driver, &rivermigrate.Config{Logger: ctxLogger})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to migrate River tables: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRecalculateStageWorker(ctxLogger, publisher))

	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	client, err := river.NewClient(driver, &river.Config{
		Logger: ctxLogger,
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue.initialize")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "queue.initialize")
	metrics.RecordOperationDuration(ctx, "queue.initialize", time.Since(start))
	ctxLogger.InfoContext(ctx, "Stage queue service initialized")

	return &Service{
		client:   client,
		pool:     pool,
		logger:   ctxLogger,
		metrics:  metrics,
		debounce: cfg.Debounce,
		now:      time.Now,
	}, nil
}

// EnqueueRecalculation schedules a recalculation at the end of the current
// debounce window. A request for a window that already has a job is dropped.
func (s *Service) EnqueueRecalculation(ctx context.Context, stageKey string) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "queue.enqueue_recalculation")

	window := debounceWindow(s.now(), s.debounce)
	res, err := s.client.Insert(ctx, RecalculateStageArgs{StageKey: stageKey, Window: window}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: window,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "queue.enqueue_recalculation")
		return fmt.Errorf("failed to enqueue recalculation for %s: %w", stageKey, err)
	}

	s.metrics.RecordOperationSuccess(ctx, "queue.enqueue_recalculation")
	s.metrics.RecordOperationDuration(ctx, "queue.enqueue_recalculation", time.Since(start))
	s.logger.DebugContext(ctx, "Recalculation enqueued",
		slog.String("stage_key", stageKey),
		slog.Time("window", window),
		slog.Int64("job_id", res.Job.ID),
		slog.Bool("duplicate", res.UniqueSkippedAsDuplicate),
		observability.ExtractCorrelationID(ctx),
	)
	return nil
}

// Start starts working jobs.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Stage queue service started")
	return nil
}

// Stop waits for running jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Stage queue service stopped")
	return nil
}

// HealthCheck pings the queue's pool.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
