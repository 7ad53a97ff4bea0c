package matchrouter

import (
	"context"
	"log/slog"

	matchevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/events"
	matchhandlers "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/handlers"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

type MatchRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
	metrics    observability.HandlerMetrics
}

// NewMatchRouter creates a router for the match topics. Router-wide middleware and
// Watermill router metrics are installed by the app on the shared *message.Router.
func NewMatchRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics observability.HandlerMetrics,
) *MatchRouter {
	return &MatchRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
		metrics:    handlerMetrics,
	}
}

func (r *MatchRouter) Configure(_ context.Context, handlers matchhandlers.Handlers) error {
	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    observability.HandlerMetrics
}

// registerHandler registers a typed handler whose outputs are published by topic metadata.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "match." + topic

	deps.router.AddNoPublisherHandler(
		handlerName,
		topic,
		deps.subscriber,
		handlerwrapper.PublishByTopic(
			handlerName,
			deps.logger,
			deps.publisher,
			handlerwrapper.WrapTransformingTyped(
				handlerName,
				deps.logger,
				deps.tracer,
				deps.metrics,
				handler,
			),
		),
	)
}

func (r *MatchRouter) registerHandlers(h matchhandlers.Handlers) {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, matchevents.MatchCreateRequestedV1, h.HandleCreateMatchRequested)
	registerHandler(deps, matchevents.MatchReportSubmitRequestedV1, h.HandleReportSubmitRequested)
	registerHandler(deps, matchevents.MatchAccountLinkRequestedV1, h.HandleAccountLinkRequested)
}

func (r *MatchRouter) Close() error {
	return r.Router.Close()
}
