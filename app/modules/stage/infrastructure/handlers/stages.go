package stagehandlers

import (
	"context"
	"log/slog"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
)

// HandleCreateStageRequested registers a stage.
func (h *StageHandlers) HandleCreateStageRequested(ctx context.Context, payload *stageevents.StageCreateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleCreateStageRequested")
	defer span.End()

	const request = stageevents.StageCreateRequestedV1
	if _, err := h.authorize(ctx, request, payload.Token); err != nil {
		return failed(request, payload.StageKey, "", err), nil
	}

	result, err := h.service.CreateStage(ctx, stageservice.CreateStageRequest{
		Key:      payload.StageKey,
		Kind:     stagedomain.Kind(payload.Kind),
		Segments: payload.Segments,
	})
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, "", *result.Failure), nil
	}

	st := *result.Success
	h.logger.InfoContext(ctx, "Stage created",
		slog.String("stage_key", st.Key),
		slog.String("kind", string(st.Kind)),
	)
	return []handlerwrapper.Result{{
		Topic: stageevents.StageCreatedV1,
		Payload: &stageevents.StageCreatedPayloadV1{
			StageKey: st.Key,
			Kind:     string(st.Kind),
			Segments: st.Segments,
			Version:  st.Version,
		},
	}}, nil
}

// HandleEntriesRegisterRequested enrols competitors in a stage.
func (h *StageHandlers) HandleEntriesRegisterRequested(ctx context.Context, payload *stageevents.EntriesRegisterRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleEntriesRegisterRequested")
	defer span.End()

	const request = stageevents.EntriesRegisterRequestedV1
	if _, err := h.authorize(ctx, request, payload.Token); err != nil {
		return failed(request, payload.StageKey, "", err), nil
	}

	result, err := h.service.RegisterEntries(ctx, payload.StageKey, payload.CompetitorIDs)
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, "", *result.Failure), nil
	}

	views := *result.Success
	entries := make([]stageevents.RegisteredEntryV1, len(views))
	for i, v := range views {
		entries[i] = stageevents.RegisteredEntryV1{
			EntryID:      v.ID.String(),
			CompetitorID: v.CompetitorID,
			Order:        v.Order,
			Lives:        v.Lives,
		}
	}

	out := []handlerwrapper.Result{{
		Topic:   stageevents.EntriesRegisteredV1,
		Payload: &stageevents.EntriesRegisteredPayloadV1{StageKey: payload.StageKey, Entries: entries},
	}}
	return append(out, h.standings(ctx, payload.StageKey)...), nil
}
