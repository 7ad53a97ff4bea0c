package matchhandlers

import (
	"log/slog"

	matchservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/application"
	"go.opentelemetry.io/otel/trace"
)

// MatchHandlers implements the Handlers interface.
type MatchHandlers struct {
	service matchservice.Service
	tokens  TokenValidator
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewMatchHandlers creates a new MatchHandlers instance.
func NewMatchHandlers(
	service matchservice.Service,
	tokens TokenValidator,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &MatchHandlers{
		service: service,
		tokens:  tokens,
		logger:  logger,
		tracer:  tracer,
	}
}
