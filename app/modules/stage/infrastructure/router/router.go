package stagerouter

import (
	"context"
	"log/slog"

	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	stagehandlers "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/handlers"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// StageRouter subscribes the stage handlers to their request topics.
type StageRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
	metrics    observability.HandlerMetrics
}

func NewStageRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics observability.HandlerMetrics,
) *StageRouter {
	return &StageRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
		metrics:    handlerMetrics,
	}
}

func (r *StageRouter) Configure(_ context.Context, handlers stagehandlers.Handlers) error {
	r.registerHandlers(handlers)
	return nil
}

// register subscribes one typed handler; its results are published on the topic each result names.
func register[T any](r *StageRouter, topic string, handler func(context.Context, *T) ([]handlerwrapper.Result, error)) {
	name := "stage." + topic
	r.Router.AddNoPublisherHandler(
		name,
		topic,
		r.subscriber,
		handlerwrapper.PublishByTopic(name, r.logger, r.publisher,
			handlerwrapper.WrapTransformingTyped(name, r.logger, r.tracer, r.metrics, handler),
		),
	)
}

func (r *StageRouter) registerHandlers(h stagehandlers.Handlers) {
	register(r, stageevents.StageCreateRequestedV1, h.HandleCreateStageRequested)
	register(r, stageevents.EntriesRegisterRequestedV1, h.HandleEntriesRegisterRequested)
	register(r, stageevents.SegmentTimeSubmitRequestedV1, h.HandleSegmentTimeSubmitRequested)
	register(r, stageevents.TimesImportRequestedV1, h.HandleTimesImportRequested)
	register(r, stageevents.RecalculateRequestedV1, h.HandleRecalculateRequested)
	register(r, stageevents.FinalsSegmentApplyRequestedV1, h.HandleFinalsSegmentApplyRequested)
	register(r, stageevents.LivesResetRequestedV1, h.HandleLivesResetRequested)
	register(r, stageevents.EntryEliminateRequestedV1, h.HandleEntryEliminateRequested)
}

func (r *StageRouter) Close() error {
	return r.Router.Close()
}
