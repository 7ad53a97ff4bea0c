package matchhandlers

import (
	"context"
	"log/slog"

	matchservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/application"
	matchevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
)

// HandleCreateMatchRequested registers a pairing.
func (h *MatchHandlers) HandleCreateMatchRequested(ctx context.Context, payload *matchevents.MatchCreateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "MatchHandlers.HandleCreateMatchRequested")
	defer span.End()

	result, err := h.service.CreateMatch(ctx, matchservice.CreateMatchRequest{
		StageKey:    payload.StageKey,
		Side1UserID: payload.Side1UserID,
		Side2UserID: payload.Side2UserID,
	})
	if err != nil {
		return nil, err
	}

	if result.Failure != nil {
		return []handlerwrapper.Result{{
			Topic: matchevents.MatchCreateFailedV1,
			Payload: &matchevents.MatchCreateFailedPayloadV1{
				Side1UserID: payload.Side1UserID,
				Side2UserID: payload.Side2UserID,
				Reason:      (*result.Failure).Error(),
			},
		}}, nil
	}

	m := *result.Success
	h.logger.InfoContext(ctx, "Match created",
		slog.String("match_id", m.ID.String()),
		slog.String("stage_key", m.StageKey),
	)
	return []handlerwrapper.Result{{
		Topic: matchevents.MatchCreatedV1,
		Payload: &matchevents.MatchCreatedPayloadV1{
			MatchID:     m.ID.String(),
			StageKey:    m.StageKey,
			Side1UserID: m.Side1UserID,
			Side2UserID: m.Side2UserID,
			Version:     m.Version,
		},
	}}, nil
}

// HandleAccountLinkRequested links the token holder's account to a secondary identity.
func (h *MatchHandlers) HandleAccountLinkRequested(ctx context.Context, payload *matchevents.MatchAccountLinkRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "MatchHandlers.HandleAccountLinkRequested")
	defer span.End()

	fail := func(reason string) []handlerwrapper.Result {
		return []handlerwrapper.Result{{
			Topic: matchevents.MatchAccountLinkFailedV1,
			Payload: &matchevents.MatchAccountLinkFailedPayloadV1{
				LinkedUserID: payload.LinkedUserID,
				Reason:       reason,
			},
		}}
	}

	claims, err := h.tokens.ValidateToken(payload.Token)
	if err != nil {
		h.logger.WarnContext(ctx, "Rejected account link with invalid token", slog.String("error", err.Error()))
		return fail(matchevents.ReasonUnauthorized), nil
	}

	result, err := h.service.LinkAccount(ctx, claims.Subject, payload.LinkedUserID)
	if err != nil {
		return nil, err
	}
	if result.Failure != nil {
		return fail((*result.Failure).Error()), nil
	}

	return []handlerwrapper.Result{{
		Topic: matchevents.MatchAccountLinkedV1,
		Payload: &matchevents.MatchAccountLinkedPayloadV1{
			PrimaryUserID: (*result.Success).PrimaryUserID,
			LinkedUserID:  (*result.Success).LinkedUserID,
		},
	}}, nil
}
