package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/eventbus"
	"github.com/Black-And-White-Club/tourney-scoring/app/modules/match"
	"github.com/Black-And-White-Club/tourney-scoring/app/modules/stage"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/Black-And-White-Club/tourney-scoring/config"
	"github.com/Black-And-White-Club/tourney-scoring/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Modules holds every feature module.
type Modules struct {
	Match *match.Module
	Stage *stage.Module
}

// App owns the process-wide resources shared by the modules.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *bun.DB
	EventBus eventbus.EventBus
	Router   *message.Router
	Registry *prometheus.Registry
	Modules  Modules

	ops *http.Server
	wg  sync.WaitGroup
}

// NewApp connects to Postgres and NATS, applies migrations and wires the modules
// onto one Watermill router.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.Environment)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics, err := observability.NewPrometheusMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN))), pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, cfg.NATS.QueueGroup, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := bus.EnsureStreams(ctx); err != nil {
		_ = bus.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure streams: %w", err)
	}

	router, err := newRouter(logger, registry)
	if err != nil {
		_ = bus.Close()
		_ = db.Close()
		return nil, err
	}

	runnerOpts := []versioned.RunnerOption{}
	if appMetrics.Retries != nil {
		runnerOpts = append(runnerOpts, versioned.WithMetrics(appMetrics.Retries))
	}
	runner := versioned.NewRunner(db, versioned.Policy{
		Base:       cfg.Concurrency.RetryBase,
		Cap:        cfg.Concurrency.RetryCap,
		MaxRetries: cfg.Concurrency.MaxRetries,
	}, logger, runnerOpts...)

	auditSink := audit.NewPublisherSink(bus, logger)
	tokens := jwt.NewService(cfg.JWT.Secret, cfg.JWT.DefaultTTL)

	matchModule, err := match.NewMatchModule(ctx, logger, appMetrics, db, runner, auditSink, tokens, router, bus, bus)
	if err != nil {
		_ = bus.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize match module: %w", err)
	}
	stageModule, err := stage.NewStageModule(ctx, cfg, logger, appMetrics, db, runner, auditSink, tokens, router, bus, bus)
	if err != nil {
		_ = bus.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize stage module: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		EventBus: bus,
		Router:   router,
		Registry: registry,
		Modules:  Modules{Match: matchModule, Stage: stageModule},
	}
	a.ops = &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           a.opsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// newRouter builds the shared Watermill router with its middleware and
// Prometheus router metrics installed once.
func newRouter(logger *slog.Logger, registry *prometheus.Registry) (*message.Router, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	metrics.NewPrometheusMetricsBuilder(registry, "scoring", "router").AddPrometheusRouterMetrics(router)

	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)
	return router, nil
}

// Run starts the modules and the ops server, then blocks in the router until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(2)
	go a.Modules.Match.Run(ctx, &a.wg)
	go a.Modules.Stage.Run(ctx, &a.wg)

	if a.ops.Addr != "" {
		go func() {
			a.Logger.Info("Ops server listening", slog.String("address", a.ops.Addr))
			if err := a.ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("Ops server stopped", slog.Any("error", err))
			}
		}()
	}

	if err := a.Router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("router stopped: %w", err)
	}
	return nil
}

// Close shuts everything down in reverse order of startup.
func (a *App) Close() error {
	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ops.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ops server: %w", err))
	}
	if err := a.Router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("router: %w", err))
	}
	if err := a.Modules.Stage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("stage module: %w", err))
	}
	if err := a.Modules.Match.Close(); err != nil {
		errs = append(errs, fmt.Errorf("match module: %w", err))
	}
	a.wg.Wait()

	if err := a.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
