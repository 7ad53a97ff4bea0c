package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	matchservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/application"
	matchhandlers "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/handlers"
	matchidentity "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/identity"
	matchdb "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories"
	matchrouter "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/router"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the match module.
type Module struct {
	MatchService matchservice.Service
	MatchRouter  *matchrouter.MatchRouter
	logger       *slog.Logger
	cancelFunc   context.CancelFunc
}

// NewMatchModule wires the match repository, service, handlers and router.
func NewMatchModule(
	ctx context.Context,
	logger *slog.Logger,
	metrics observability.Metrics,
	db *bun.DB,
	runner *versioned.Runner,
	auditSink audit.Sink,
	tokens matchhandlers.TokenValidator,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
) (*Module, error) {
	logger = logger.With(slog.String("module", "match"))
	tracer := observability.Tracer("match")

	repo := matchdb.NewRepository(db)
	resolver := matchidentity.NewResolver(repo)
	service := matchservice.NewMatchService(repo, resolver, runner, auditSink, logger, metrics.Operations, tracer, db)

	handlers := matchhandlers.NewMatchHandlers(service, tokens, logger, tracer)
	r := matchrouter.NewMatchRouter(logger, router, subscriber, publisher, tracer, metrics.Handlers)
	if err := r.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure match router: %w", err)
	}

	return &Module{
		MatchService: service,
		MatchRouter:  r,
		logger:       logger,
	}, nil
}

func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting match module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Match module goroutine stopped")
}

func (m *Module) Close() error {
	m.logger.Info("Stopping match module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
