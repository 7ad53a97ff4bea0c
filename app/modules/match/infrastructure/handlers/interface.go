package matchhandlers

import (
	"context"

	matchevents "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/events"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tourney-scoring/pkg/jwt"
)

// Handlers handles match-related events.
type Handlers interface {
	HandleCreateMatchRequested(ctx context.Context, payload *matchevents.MatchCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleReportSubmitRequested(ctx context.Context, payload *matchevents.MatchReportSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleAccountLinkRequested(ctx context.Context, payload *matchevents.MatchAccountLinkRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// TokenValidator verifies the submitter token carried on a request.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.ScoringClaims, error)
}
