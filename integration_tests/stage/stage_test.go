package stage_integration_tests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualificationConcurrentEntry(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	svc := newService(t, nil, 3)

	segments := []string{"s1", "s2", "s3"}
	competitors := []string{"alice", "bob", "carol", "dave"}
	entries := setupStage(t, svc, stageservice.CreateStageRequest{
		Key: "quali", Kind: stagedomain.KindQualification, Segments: segments,
	}, competitors...)

	// Every segment of every entry is typed in by a different official at once.
	var wg sync.WaitGroup
	for i, c := range competitors {
		for _, seg := range segments {
			wg.Add(1)
			go func() {
				defer wg.Done()
				submit(t, svc, "quali", entries[c], seg, fmt.Sprintf("1:%02d.000", 10*i))
			}()
		}
	}
	wg.Wait()

	// Inline recalculations may interleave; a final pass settles the ranking.
	recalc, err := svc.RecalculateStage(ctx, "quali")
	require.NoError(t, err)
	require.Nil(t, recalc.Failure)

	res, err := svc.GetStandings(ctx, "quali")
	require.NoError(t, err)
	require.Nil(t, res.Failure)
	st := *res.Success

	require.Len(t, st.Entries, len(competitors))
	for i, e := range st.Entries {
		assert.Equal(t, competitors[i], e.CompetitorID, "ranked by total time")
		require.NotNil(t, e.Rank)
		assert.Equal(t, i+1, *e.Rank)
		assert.Len(t, e.Times, len(segments))
		require.NotNil(t, e.Score)
	}
	assert.Equal(t, 150, *st.Entries[0].Score)
	assert.Equal(t, 0, *st.Entries[len(competitors)-1].Score)
}

func TestPinnedVersionIsNotRefreshed(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	svc := newService(t, nil, 3)

	entries := setupStage(t, svc, stageservice.CreateStageRequest{
		Key: "sd", Kind: stagedomain.KindSuddenDeath, Segments: []string{"s1"},
	}, "alice")
	alice := entries["alice"]

	submit(t, svc, "sd", alice, "s1", "1:00.000")

	stale := alice.Version
	res, err := svc.SubmitSegmentTime(ctx, stageservice.SubmitTimeRequest{
		StageKey: "sd", EntryID: alice.ID, Segment: "s1", Raw: "59.5", ExpectedVersion: &stale,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, versioned.ErrVersionConflict)
	current, ok := versioned.CurrentVersion(*res.Failure)
	require.True(t, ok)
	assert.Greater(t, current, stale)
}

func TestFinalsToChampion(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	svc := newService(t, nil, 1)

	entries := setupStage(t, svc, stageservice.CreateStageRequest{
		Key: "finals", Kind: stagedomain.KindFinals, Segments: []string{"s1", "s2"},
	}, "alice", "bob", "carol")

	submit(t, svc, "finals", entries["alice"], "s1", "1:00.000")
	submit(t, svc, "finals", entries["bob"], "s1", "1:01.000")
	submit(t, svc, "finals", entries["carol"], "s1", "1:02.000")

	s1, err := svc.ApplyFinalsSegment(ctx, "finals", "s1", "official")
	require.NoError(t, err)
	require.Nil(t, s1.Failure)
	assert.Equal(t, []string{entries["carol"].ID.String()}, uuidStrings((*s1.Success).Eliminated))
	assert.Equal(t, 2, (*s1.Success).Active)
	assert.False(t, (*s1.Success).Completed)

	again, err := svc.ApplyFinalsSegment(ctx, "finals", "s1", "official")
	require.NoError(t, err)
	require.NotNil(t, again.Failure)
	assert.ErrorIs(t, *again.Failure, stagedomain.ErrSegmentAlreadyApplied)

	submit(t, svc, "finals", entries["alice"], "s2", "1:00.000")
	submit(t, svc, "finals", entries["bob"], "s2", "1:05.000")

	s2, err := svc.ApplyFinalsSegment(ctx, "finals", "s2", "official")
	require.NoError(t, err)
	require.Nil(t, s2.Failure)
	require.True(t, (*s2.Success).Completed)
	require.NotNil(t, (*s2.Success).Champion)
	assert.Equal(t, entries["alice"].ID, *(*s2.Success).Champion)

	standings, err := svc.GetStandings(ctx, "finals")
	require.NoError(t, err)
	st := *standings.Success
	assert.True(t, st.Stage.Completed)
	assert.Equal(t, []string{"s1", "s2"}, st.Stage.AppliedSegments)
	for _, e := range st.Entries {
		assert.Equal(t, e.CompetitorID != "alice", e.Eliminated, e.CompetitorID)
	}

	res, err := svc.SubmitSegmentTime(ctx, stageservice.SubmitTimeRequest{
		StageKey: "finals", EntryID: entries["alice"].ID, Segment: "s2", Raw: "58.0",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, stagedomain.ErrStageCompleted)
}
