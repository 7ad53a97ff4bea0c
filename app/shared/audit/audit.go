package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// TopicEventV1 receives every audit record.
const TopicEventV1 = "audit.event.v1"

// Event kinds.
const (
	KindReportSubmitted  = "match.report_submitted"
	KindMatchConfirmed   = "match.confirmed"
	KindMatchDisputed    = "match.disputed"
	KindSegmentRecorded  = "stage.segment_recorded"
	KindSegmentApplied   = "stage.segment_applied"
	KindLivesReset       = "stage.lives_reset"
	KindEntryEliminated  = "stage.entry_eliminated"
	KindStageRecomputed  = "stage.recalculated"
	KindChampionDeclared = "stage.champion_declared"
)

// Event is an append-only record of a state change.
type Event struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Actor      string         `json:"actor,omitempty"`
	Version    int64          `json:"version"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sink appends audit events. Callers log a failed append and carry on.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// PublisherSink publishes audit events on the event bus.
type PublisherSink struct {
	publisher message.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPublisherSink creates a Sink backed by publisher.
func NewPublisherSink(publisher message.Publisher, logger *slog.Logger) *PublisherSink {
	return &PublisherSink{publisher: publisher, logger: logger, now: time.Now}
}

func (s *PublisherSink) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}

	msg, err := handlerwrapper.NewMessage(ctx, handlerwrapper.Result{Topic: TopicEventV1, Payload: e})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if err := s.publisher.Publish(TopicEventV1, msg); err != nil {
		return fmt.Errorf("publish audit event %s: %w", e.Kind, err)
	}
	s.logger.DebugContext(ctx, "Audit event appended",
		slog.String("kind", e.Kind),
		slog.String("entity_id", e.EntityID),
		observability.ExtractCorrelationID(ctx),
	)
	return nil
}

// AppendOrLog appends e and logs, rather than returns, any failure.
func AppendOrLog(ctx context.Context, sink Sink, logger *slog.Logger, e Event) {
	if sink == nil {
		return
	}
	if err := sink.Append(ctx, e); err != nil {
		logger.WarnContext(ctx, "Audit append failed",
			slog.String("kind", e.Kind),
			slog.String("entity_id", e.EntityID),
			observability.ExtractCorrelationID(ctx),
			observability.Error(err),
		)
	}
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Append(context.Context, Event) error { return nil }
