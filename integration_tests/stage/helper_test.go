package stage_integration_tests

import (
	"context"
	"testing"
	"time"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	"github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application/parsers"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func requireEnv(t *testing.T) {
	t.Helper()
	if env == nil {
		t.Skip("integration environment unavailable")
	}
	require.NoError(t, env.Reset(context.Background()))
}

func newService(t *testing.T, scheduler stageservice.RecalculationScheduler, lives int) *stageservice.StageService {
	t.Helper()
	runner := versioned.NewRunner(env.DB, versioned.Policy{
		Base:       time.Millisecond,
		Cap:        20 * time.Millisecond,
		MaxRetries: 25,
	}, env.Logger)

	return stageservice.NewStageService(
		stagedb.NewRepository(env.DB),
		runner,
		audit.NopSink{},
		scheduler,
		parsers.NewFactory(),
		stageservice.Settings{
			MaxPoints:       50,
			MinPoints:       0,
			StartingLives:   lives,
			ResetThresholds: []int{2},
			RecalcWorkers:   4,
		},
		env.Logger,
		observability.NoopOperationMetrics{},
		noop.NewTracerProvider().Tracer("test"),
		env.DB,
	)
}

// setupStage creates a stage and registers competitors, returning entries by competitor.
func setupStage(t *testing.T, svc *stageservice.StageService, req stageservice.CreateStageRequest, competitors ...string) map[string]stageservice.EntryView {
	t.Helper()
	ctx := context.Background()

	created, err := svc.CreateStage(ctx, req)
	require.NoError(t, err)
	require.Nil(t, created.Failure)

	registered, err := svc.RegisterEntries(ctx, req.Key, competitors)
	require.NoError(t, err)
	require.Nil(t, registered.Failure)

	out := make(map[string]stageservice.EntryView, len(competitors))
	for _, e := range *registered.Success {
		out[e.CompetitorID] = e
	}
	return out
}

func submit(t *testing.T, svc *stageservice.StageService, stageKey string, entry stageservice.EntryView, segment, raw string) {
	t.Helper()
	res, err := svc.SubmitSegmentTime(context.Background(), stageservice.SubmitTimeRequest{
		StageKey: stageKey, EntryID: entry.ID, Segment: segment, Raw: raw, SubmittedBy: "official",
	})
	require.NoError(t, err)
	require.Nil(t, res.Failure)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
