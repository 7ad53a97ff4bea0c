package stagehandlers

import (
	"context"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/google/uuid"
)

// HandleFinalsSegmentApplyRequested runs the lives engine over one segment.
func (h *StageHandlers) HandleFinalsSegmentApplyRequested(ctx context.Context, payload *stageevents.FinalsSegmentApplyRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleFinalsSegmentApplyRequested")
	defer span.End()

	const request = stageevents.FinalsSegmentApplyRequestedV1
	subject, err := h.authorize(ctx, request, payload.Token)
	if err != nil {
		return failed(request, payload.StageKey, "", err), nil
	}

	result, err := h.service.ApplyFinalsSegment(ctx, payload.StageKey, payload.Segment, subject)
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, "", *result.Failure), nil
	}

	o := *result.Success
	out := []handlerwrapper.Result{{
		Topic: stageevents.FinalsSegmentAppliedV1,
		Payload: &stageevents.FinalsSegmentAppliedPayloadV1{
			StageKey:   o.StageKey,
			Segment:    o.Segment,
			Slowest:    stagedomain.FormatSegmentTime(o.Slowest),
			LostLife:   idStrings(o.LostLife),
			Eliminated: idStrings(o.Eliminated),
			Active:     o.Active,
			Completed:  o.Completed,
			Version:    o.StageVersion,
		},
	}}
	for _, id := range o.Eliminated {
		out = append(out, handlerwrapper.Result{
			Topic: stageevents.EntryEliminatedV1,
			Payload: &stageevents.EntryEliminatedPayloadV1{
				StageKey: o.StageKey,
				EntryID:  id.String(),
				Active:   o.Active,
			},
		})
	}
	out = append(out, champion(o.StageKey, o.Champion)...)
	return append(out, h.standings(ctx, payload.StageKey)...), nil
}

// HandleLivesResetRequested restores lives at a reset checkpoint.
func (h *StageHandlers) HandleLivesResetRequested(ctx context.Context, payload *stageevents.LivesResetRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleLivesResetRequested")
	defer span.End()

	const request = stageevents.LivesResetRequestedV1
	subject, err := h.authorize(ctx, request, payload.Token)
	if err != nil {
		return failed(request, payload.StageKey, "", err), nil
	}

	result, err := h.service.ResetLives(ctx, payload.StageKey, subject)
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, "", *result.Failure), nil
	}

	o := *result.Success
	out := []handlerwrapper.Result{{
		Topic: stageevents.LivesResetV1,
		Payload: &stageevents.LivesResetPayloadV1{
			StageKey: o.StageKey,
			Restored: idStrings(o.Restored),
			Active:   o.Active,
			Version:  o.StageVersion,
		},
	}}
	if len(o.Restored) == 0 {
		return out, nil
	}
	return append(out, h.standings(ctx, payload.StageKey)...), nil
}

// HandleEntryEliminateRequested applies the manual elimination override.
func (h *StageHandlers) HandleEntryEliminateRequested(ctx context.Context, payload *stageevents.EntryEliminateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleEntryEliminateRequested")
	defer span.End()

	const request = stageevents.EntryEliminateRequestedV1
	subject, err := h.authorize(ctx, request, payload.Token)
	if err != nil {
		return failed(request, payload.StageKey, payload.EntryID, err), nil
	}
	entryID, err := uuid.Parse(payload.EntryID)
	if err != nil {
		return failed(request, payload.StageKey, payload.EntryID, stagedomain.ErrUnknownEntry), nil
	}

	result, err := h.service.EliminateEntry(ctx, stageservice.EliminateRequest{
		StageKey:        payload.StageKey,
		EntryID:         entryID,
		ExpectedVersion: payload.ExpectedVersion,
		Actor:           subject,
	})
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, payload.EntryID, *result.Failure), nil
	}

	o := *result.Success
	out := []handlerwrapper.Result{{
		Topic: stageevents.EntryEliminatedV1,
		Payload: &stageevents.EntryEliminatedPayloadV1{
			StageKey: o.StageKey,
			EntryID:  o.EntryID.String(),
			Manual:   true,
			Active:   o.Active,
		},
	}}
	out = append(out, champion(o.StageKey, o.Champion)...)
	return append(out, h.standings(ctx, payload.StageKey)...), nil
}

func champion(stageKey string, id *uuid.UUID) []handlerwrapper.Result {
	if id == nil {
		return nil
	}
	return []handlerwrapper.Result{{
		Topic:   stageevents.ChampionDeclaredV1,
		Payload: &stageevents.ChampionDeclaredPayloadV1{StageKey: stageKey, EntryID: id.String()},
	}}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
