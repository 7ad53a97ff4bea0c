package stagehandlers

import (
	"context"
	"errors"
	"log/slog"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/Black-And-White-Club/tourney-scoring/pkg/eventbus"
	"go.opentelemetry.io/otel/trace"
)

// StageHandlers implements the Handlers interface.
type StageHandlers struct {
	service stageservice.Service
	tokens  TokenValidator
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewStageHandlers creates a new StageHandlers instance.
func NewStageHandlers(
	service stageservice.Service,
	tokens TokenValidator,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &StageHandlers{
		service: service,
		tokens:  tokens,
		logger:  logger,
		tracer:  tracer,
	}
}

// authorize returns the subject of a valid admin token.
func (h *StageHandlers) authorize(ctx context.Context, request, token string) (string, error) {
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.WarnContext(ctx, "Rejected stage request with invalid token",
			slog.String("request", request),
			slog.String("error", err.Error()),
		)
		return "", stageservice.ErrUnauthorized
	}
	if !claims.IsAdmin() {
		h.logger.WarnContext(ctx, "Rejected stage request from non-admin",
			slog.String("request", request),
			slog.String("subject", claims.Subject),
		)
		return "", stageservice.ErrUnauthorized
	}
	return claims.Subject, nil
}

// failed builds the single rejection message for a request.
func failed(request, stageKey, entryID string, err error) []handlerwrapper.Result {
	payload := &stageevents.RequestFailedPayloadV1{
		Request:  request,
		StageKey: stageKey,
		EntryID:  entryID,
		Reason:   rejectionReason(err),
		Error:    err.Error(),
	}
	if current, ok := versioned.CurrentVersion(err); ok {
		payload.CurrentVersion = &current
	}
	return []handlerwrapper.Result{{Topic: stageevents.RequestFailedV1, Payload: payload}}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, stageservice.ErrUnauthorized):
		return stageevents.ReasonUnauthorized
	case errors.Is(err, versioned.ErrNotFound):
		return stageevents.ReasonNotFound
	case errors.Is(err, versioned.ErrVersionConflict):
		return stageevents.ReasonStale
	case errors.Is(err, stagedomain.ErrStageCompleted):
		return stageevents.ReasonCompleted
	case errors.Is(err, stagedomain.ErrValidation):
		return stageevents.ReasonValidation
	default:
		return stageevents.ReasonNotAllowed
	}
}

// standings renders the stage's current standings on its scoped topic. A
// failure to read them is logged and yields nothing: the write that triggered
// the refresh has already committed.
func (h *StageHandlers) standings(ctx context.Context, stageKey string) []handlerwrapper.Result {
	result, err := h.service.GetStandings(ctx, stageKey)
	if err != nil || result.Success == nil {
		h.logger.WarnContext(ctx, "Could not refresh standings",
			slog.String("stage_key", stageKey),
			slog.Any("error", err),
		)
		return nil
	}

	st := *result.Success
	payload := &stageevents.StandingsUpdatedPayloadV1{
		StageKey:  st.Stage.Key,
		Kind:      string(st.Stage.Kind),
		Completed: st.Stage.Completed,
		Entries:   make([]stageevents.StandingEntryV1, len(st.Entries)),
	}
	if st.Stage.ChampionEntryID != nil {
		payload.Champion = st.Stage.ChampionEntryID.String()
	}
	for i, e := range st.Entries {
		entry := stageevents.StandingEntryV1{
			EntryID:      e.ID.String(),
			CompetitorID: e.CompetitorID,
			Times:        e.Times,
			Score:        e.Score,
			Rank:         e.Rank,
			Lives:        e.Lives,
			Eliminated:   e.Eliminated,
			Version:      e.Version,
		}
		if e.Total != nil {
			entry.Total = stagedomain.FormatSegmentTime(*e.Total)
		}
		payload.Entries[i] = entry
	}

	return []handlerwrapper.Result{{
		Topic:   eventbus.ScopedTopic(stageevents.StandingsUpdatedV1, stageKey),
		Payload: payload,
	}}
}
