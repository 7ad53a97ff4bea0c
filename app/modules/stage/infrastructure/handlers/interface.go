package stagehandlers

import (
	"context"

	stageevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/pkg/jwt"
)

// Handlers handles stage-related events.
type Handlers interface {
	HandleCreateStageRequested(ctx context.Context, payload *stageevents.StageCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleEntriesRegisterRequested(ctx context.Context, payload *stageevents.EntriesRegisterRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleSegmentTimeSubmitRequested(ctx context.Context, payload *stageevents.SegmentTimeSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleTimesImportRequested(ctx context.Context, payload *stageevents.TimesImportRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleRecalculateRequested(ctx context.Context, payload *stageevents.RecalculateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleFinalsSegmentApplyRequested(ctx context.Context, payload *stageevents.FinalsSegmentApplyRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLivesResetRequested(ctx context.Context, payload *stageevents.LivesResetRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleEntryEliminateRequested(ctx context.Context, payload *stageevents.EntryEliminateRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// TokenValidator verifies the admin token carried on a request.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.ScoringClaims, error)
}
