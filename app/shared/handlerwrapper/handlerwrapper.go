package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

// CtxKeyReplyTo carries the reply_to metadata of the inbound message.
const CtxKeyReplyTo ctxKey = "reply_to"

// MetadataTopic is set on every produced message so routers can publish it.
const MetadataTopic = "topic"

// Result is one outbound message produced by a typed handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// TypedHandler consumes a decoded payload and returns the messages to publish.
type TypedHandler[T any] func(ctx context.Context, payload *T) ([]Result, error)

// WrapTransformingTyped decodes the JSON payload into T, runs handler inside a
// span, and turns its Results into Watermill messages tagged with their topic.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics observability.HandlerMetrics,
	handler TypedHandler[T],
) message.HandlerFunc {
	if metrics == nil {
		metrics = observability.NoopHandlerMetrics{}
	}

	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()
		if id := msg.Metadata.Get(observability.MetadataCorrelationID); id != "" {
			ctx = observability.WithCorrelationID(ctx, id)
		} else {
			ctx = observability.EnsureCorrelationID(ctx)
		}
		if rt := msg.Metadata.Get(string(CtxKeyReplyTo)); rt != "" {
			ctx = context.WithValue(ctx, CtxKeyReplyTo, rt)
		}

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", observability.CorrelationID(ctx)),
		))
		defer span.End()

		metrics.RecordHandlerAttempt(ctx, handlerName)
		start := time.Now()
		defer func() {
			metrics.RecordHandlerDuration(ctx, handlerName, time.Since(start))
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Failed to unmarshal payload",
				slog.String("handler", handlerName),
				observability.CorrelationIDFromMsg(msg),
				observability.Error(err),
			)
			metrics.RecordHandlerFailure(ctx, handlerName)
			span.SetStatus(codes.Error, "unmarshal")
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Error in "+handlerName,
				observability.ExtractCorrelationID(ctx),
				observability.Error(err),
			)
			metrics.RecordHandlerFailure(ctx, handlerName)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(ctx, r)
			if err != nil {
				metrics.RecordHandlerFailure(ctx, handlerName)
				return nil, err
			}
			out = append(out, m)
		}

		metrics.RecordHandlerSuccess(ctx, handlerName)
		return out, nil
	}
}

// NewMessage marshals r into a Watermill message carrying the correlation id of ctx.
func NewMessage(ctx context.Context, r Result) (*message.Message, error) {
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", r.Topic, err)
	}

	m := message.NewMessage(watermill.NewUUID(), body)
	for k, v := range r.Metadata {
		m.Metadata.Set(k, v)
	}
	m.Metadata.Set(MetadataTopic, r.Topic)
	if id := observability.CorrelationID(ctx); id != "" {
		m.Metadata.Set(observability.MetadataCorrelationID, id)
	}
	m.SetContext(ctx)
	return m, nil
}
