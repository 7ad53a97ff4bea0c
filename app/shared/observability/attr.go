package observability

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// ServiceName tags logs, spans and metrics.
const ServiceName = "tourney-scoring"

// MetadataCorrelationID is the message metadata key carrying the correlation id.
const MetadataCorrelationID = "correlation_id"

type correlationKey struct{}

// WithCorrelationID stores id on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored on ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// EnsureCorrelationID returns ctx carrying a correlation id, minting one if absent.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if CorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.NewString())
}

// ExtractCorrelationID is a log attribute for the correlation id on ctx.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String(MetadataCorrelationID, CorrelationID(ctx))
}

// CorrelationIDFromMsg is a log attribute for the correlation id in msg metadata.
func CorrelationIDFromMsg(msg *message.Message) slog.Attr {
	return slog.String(MetadataCorrelationID, msg.Metadata.Get(MetadataCorrelationID))
}

// Error is a log attribute for err.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
