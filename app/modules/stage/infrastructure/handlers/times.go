package stagehandlers

import (
	"context"
	"log/slog"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/google/uuid"
)

// HandleSegmentTimeSubmitRequested records one official's time entry.
func (h *StageHandlers) HandleSegmentTimeSubmitRequested(ctx context.Context, payload *stageevents.SegmentTimeSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleSegmentTimeSubmitRequested")
	defer span.End()

	const request = stageevents.SegmentTimeSubmitRequestedV1
	subject, err := h.authorize(ctx, request, payload.Token)
	if err != nil {
		return failed(request, payload.StageKey, payload.EntryID, err), nil
	}

	entryID, err := uuid.Parse(payload.EntryID)
	if err != nil {
		return failed(request, payload.StageKey, payload.EntryID, stagedomain.ErrUnknownEntry), nil
	}

	result, err := h.service.SubmitSegmentTime(ctx, stageservice.SubmitTimeRequest{
		StageKey:        payload.StageKey,
		EntryID:         entryID,
		Segment:         payload.Segment,
		Raw:             payload.Time,
		ExpectedVersion: payload.ExpectedVersion,
		SubmittedBy:     subject,
	})
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, payload.EntryID, *result.Failure), nil
	}

	o := *result.Success
	out := []handlerwrapper.Result{{
		Topic: stageevents.SegmentTimeRecordedV1,
		Payload: &stageevents.SegmentTimeRecordedPayloadV1{
			StageKey: o.StageKey,
			EntryID:  o.EntryID.String(),
			Segment:  o.Segment,
			Time:     stagedomain.FormatSegmentTime(o.Time),
			Version:  o.Version,
			Changed:  o.Changed,
		},
	}}
	if !o.Recalculated {
		return out, nil
	}
	return append(out, h.standings(ctx, o.StageKey)...), nil
}

// HandleTimesImportRequested applies an uploaded time sheet.
func (h *StageHandlers) HandleTimesImportRequested(ctx context.Context, payload *stageevents.TimesImportRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleTimesImportRequested")
	defer span.End()

	const request = stageevents.TimesImportRequestedV1
	subject, err := h.authorize(ctx, request, payload.Token)
	if err != nil {
		return failed(request, payload.StageKey, "", err), nil
	}

	result, err := h.service.ImportSegmentTimes(ctx, stageservice.ImportRequest{
		StageKey:    payload.StageKey,
		Filename:    payload.Filename,
		Data:        payload.Data,
		SubmittedBy: subject,
	})
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(request, payload.StageKey, "", *result.Failure), nil
	}

	o := *result.Success
	rejected := make([]stageevents.ImportRejectionV1, len(o.Rejected))
	for i, r := range o.Rejected {
		rejected[i] = stageevents.ImportRejectionV1{
			Line:         r.Line,
			CompetitorID: r.CompetitorID,
			Segment:      r.Segment,
			Reason:       r.Reason,
		}
	}
	out := []handlerwrapper.Result{{
		Topic: stageevents.TimesImportedV1,
		Payload: &stageevents.TimesImportedPayloadV1{
			StageKey:  o.StageKey,
			Filename:  payload.Filename,
			Applied:   o.Applied,
			Unchanged: o.Unchanged,
			Rejected:  rejected,
		},
	}}
	if !o.Recalculated {
		return out, nil
	}
	return append(out, h.standings(ctx, o.StageKey)...), nil
}

// HandleRecalculateRequested runs a recalculation and publishes fresh standings.
// The request comes from the job queue, so it carries no token.
func (h *StageHandlers) HandleRecalculateRequested(ctx context.Context, payload *stageevents.RecalculateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "StageHandlers.HandleRecalculateRequested")
	defer span.End()

	result, err := h.service.RecalculateStage(ctx, payload.StageKey)
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return failed(stageevents.RecalculateRequestedV1, payload.StageKey, "", *result.Failure), nil
	}

	o := *result.Success
	stale := make([]string, len(o.Stale))
	for i, id := range o.Stale {
		stale[i] = id.String()
	}
	if len(stale) > 0 {
		h.logger.InfoContext(ctx, "Recalculation skipped stale entries",
			slog.String("stage_key", o.StageKey),
			slog.Int("stale", len(stale)),
		)
	}

	out := []handlerwrapper.Result{{
		Topic: stageevents.StageRecalculatedV1,
		Payload: &stageevents.StageRecalculatedPayloadV1{
			StageKey:  o.StageKey,
			Updated:   o.Updated,
			Unchanged: o.Unchanged,
			Stale:     stale,
			Ranked:    o.Ranked,
		},
	}}
	if o.Updated == 0 {
		return out, nil
	}
	return append(out, h.standings(ctx, payload.StageKey)...), nil
}
