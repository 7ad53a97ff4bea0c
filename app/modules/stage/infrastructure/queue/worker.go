package stagequeue

import (
	"context"
	"fmt"
	"log/slog"

	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/riverqueue/river"
)

// RecalculateStageWorker turns a due job into a recalculation request on the
// event bus, where the stage router runs it.
type RecalculateStageWorker struct {
	river.WorkerDefaults[RecalculateStageArgs]

	logger    *slog.Logger
	publisher message.Publisher
}

func NewRecalculateStageWorker(logger *slog.Logger, publisher message.Publisher) *RecalculateStageWorker {
	return &RecalculateStageWorker{logger: logger, publisher: publisher}
}

func (w *RecalculateStageWorker) Work(ctx context.Context, job *river.Job[RecalculateStageArgs]) error {
	ctx = observability.EnsureCorrelationID(ctx)

	msg, err := handlerwrapper.NewMessage(ctx, handlerwrapper.Result{
		Topic:   stageevents.RecalculateRequestedV1,
		Payload: &stageevents.RecalculateRequestedPayloadV1{StageKey: job.Args.StageKey},
	})
	if err != nil {
		return fmt.Errorf("failed to build recalculation request: %w", err)
	}
	if err := w.publisher.Publish(stageevents.RecalculateRequestedV1, msg); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish recalculation request",
			slog.String("stage_key", job.Args.StageKey),
			slog.Int64("job_id", job.ID),
			observability.Error(err),
		)
		return fmt.Errorf("failed to publish recalculation request: %w", err)
	}

	w.logger.InfoContext(ctx, "Recalculation requested",
		slog.String("stage_key", job.Args.StageKey),
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		observability.ExtractCorrelationID(ctx),
	)
	return nil
}
