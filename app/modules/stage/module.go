package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	"github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application/parsers"
	stagehandlers "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/handlers"
	stagequeue "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/queue"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	stagerouter "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/router"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/Black-And-White-Club/tourney-scoring/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the stage module.
type Module struct {
	StageService stageservice.Service
	StageRouter  *stagerouter.StageRouter
	// Queue is nil when recalculations run inline.
	Queue      *stagequeue.Service
	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewStageModule wires the stage repository, optional recalculation queue,
// service, handlers and router.
func NewStageModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics observability.Metrics,
	db *bun.DB,
	runner *versioned.Runner,
	auditSink audit.Sink,
	tokens stagehandlers.TokenValidator,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
) (*Module, error) {
	logger = logger.With(slog.String("module", "stage"))
	tracer := observability.Tracer("stage")

	var (
		queue     *stagequeue.Service
		scheduler stageservice.RecalculationScheduler
	)
	if cfg.Queue.Enabled {
		q, err := stagequeue.NewService(ctx, cfg.Postgres.DSN, stagequeue.Config{
			MaxWorkers: cfg.Queue.MaxWorkers,
			Debounce:   cfg.Queue.Debounce,
		}, logger, metrics.Operations, publisher)
		if err != nil {
			return nil, fmt.Errorf("failed to create stage queue: %w", err)
		}
		queue, scheduler = q, q
	}

	service := stageservice.NewStageService(
		stagedb.NewRepository(db),
		runner,
		auditSink,
		scheduler,
		parsers.NewFactory(),
		stageservice.Settings{
			MaxPoints:       cfg.Scoring.MaxPoints,
			MinPoints:       cfg.Scoring.MinPoints,
			StartingLives:   cfg.Scoring.StartingLives,
			ResetThresholds: cfg.Scoring.ResetThresholds,
			RecalcWorkers:   cfg.Concurrency.RecalcWorkers,
		},
		logger,
		metrics.Operations,
		tracer,
		db,
	)

	handlers := stagehandlers.NewStageHandlers(service, tokens, logger, tracer)
	r := stagerouter.NewStageRouter(logger, router, subscriber, publisher, tracer, metrics.Handlers)
	if err := r.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure stage router: %w", err)
	}

	return &Module{
		StageService: service,
		StageRouter:  r,
		Queue:        queue,
		logger:       logger,
	}, nil
}

func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting stage module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.Error("Stage queue failed to start", slog.Any("error", err))
		}
	}

	<-ctx.Done()
	m.logger.Info("Stage module goroutine stopped")
}

func (m *Module) Close() error {
	m.logger.Info("Stopping stage module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.Queue == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Queue.Stop(ctx)
}
