package matchhandlers

import (
	"context"
	"errors"
	"log/slog"

	matchservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/application"
	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	matchevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/events"
	matchidentity "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/identity"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
)

// HandleReportSubmitRequested authenticates the submitter and forwards the report to the service.
// Domain rejections are published, not retried.
func (h *MatchHandlers) HandleReportSubmitRequested(ctx context.Context, payload *matchevents.MatchReportSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "MatchHandlers.HandleReportSubmitRequested")
	defer span.End()

	reject := func(reason string, err error) []handlerwrapper.Result {
		rejected := &matchevents.MatchReportRejectedPayloadV1{
			MatchID: payload.MatchID,
			Side:    payload.Side,
			Reason:  reason,
			Error:   err.Error(),
		}
		if current, ok := versioned.CurrentVersion(err); ok {
			rejected.CurrentVersion = &current
		}
		return []handlerwrapper.Result{{Topic: matchevents.MatchReportRejectedV1, Payload: rejected}}
	}

	matchID, err := uuid.Parse(payload.MatchID)
	if err != nil {
		h.logger.WarnContext(ctx, "Invalid match ID in report",
			slog.String("match_id", payload.MatchID),
			slog.String("error", err.Error()),
		)
		return reject(matchevents.ReasonValidation, err), nil
	}

	claims, err := h.tokens.ValidateToken(payload.Token)
	if err != nil {
		h.logger.WarnContext(ctx, "Rejected report with invalid token",
			slog.String("match_id", payload.MatchID),
			slog.String("error", err.Error()),
		)
		return reject(matchevents.ReasonUnauthorized, matchservice.ErrUnauthorized), nil
	}

	result, err := h.service.SubmitReport(ctx, matchservice.SubmitReportRequest{
		MatchID:         matchID,
		Side:            matchdomain.Side(payload.Side),
		Values:          matchdomain.Values(payload.Values),
		Submitter:       matchidentity.Submitter{UserID: claims.Subject, Admin: claims.IsAdmin()},
		ExpectedVersion: payload.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}

	if result.Failure != nil {
		failure := *result.Failure
		return reject(rejectionReason(failure), failure), nil
	}

	o := *result.Success
	out := []handlerwrapper.Result{{
		Topic: matchevents.MatchReportAcceptedV1,
		Payload: &matchevents.MatchReportAcceptedPayloadV1{
			MatchID: o.MatchID.String(),
			Side:    int(o.Side),
			Values:  o.Values,
			State:   string(o.State),
			Version: o.Version,
			Changed: o.Changed,
		},
	}}

	if !o.Changed {
		return out, nil
	}

	switch o.State {
	case matchdomain.StateAgreed:
		out = append(out, handlerwrapper.Result{
			Topic: matchevents.MatchResultConfirmedV1,
			Payload: &matchevents.MatchResultConfirmedPayloadV1{
				MatchID:   o.MatchID.String(),
				Canonical: o.Canonical,
				Version:   o.Version,
			},
		})
	case matchdomain.StateDisputed:
		out = append(out, handlerwrapper.Result{
			Topic: matchevents.MatchResultDisputedV1,
			Payload: &matchevents.MatchResultDisputedPayloadV1{
				MatchID:     o.MatchID.String(),
				Side1Values: o.Side1Values,
				Side2Values: o.Side2Values,
				Version:     o.Version,
			},
		})
	}
	return out, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, matchservice.ErrUnauthorized):
		return matchevents.ReasonUnauthorized
	case errors.Is(err, versioned.ErrNotFound):
		return matchevents.ReasonNotFound
	case errors.Is(err, matchdomain.ErrMatchCompleted):
		return matchevents.ReasonCompleted
	case errors.Is(err, versioned.ErrVersionConflict):
		return matchevents.ReasonStale
	default:
		return matchevents.ReasonValidation
	}
}
