package stageservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func pin(v int64) *int64 { return &v }

func TestStageService_SubmitSegmentTime(t *testing.T) {
	tests := []struct {
		name     string
		kind     stagedomain.Kind
		setup    func(f *FakeStageRepository, entryID uuid.UUID)
		req      func(entryID uuid.UUID) SubmitTimeRequest
		wantFail error
		verify   func(t *testing.T, res TimeResult, f *FakeStageRepository, sink *FakeAuditSink, sched *FakeScheduler, entryID uuid.UUID)
	}{
		{
			name: "stores the normalized time and schedules a recalculation",
			kind: stagedomain.KindQualification,
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "75.5", SubmittedBy: "official"}
			},
			verify: func(t *testing.T, res TimeResult, f *FakeStageRepository, sink *FakeAuditSink, sched *FakeScheduler, id uuid.UUID) {
				o := *res.Success
				assert.True(t, o.Changed)
				assert.Equal(t, int64(1), o.Version)
				assert.Equal(t, 75500*time.Millisecond, o.Time)
				assert.Equal(t, "1:15.500", f.StoredEntry(id).Times["s1"])
				assert.Equal(t, []string{audit.KindSegmentRecorded}, sink.Kinds())
				assert.Equal(t, []string{"st"}, sched.Queued())
				assert.False(t, o.Recalculated)
			},
		},
		{
			name: "identical resubmission does not bump the version",
			kind: stagedomain.KindQualification,
			setup: func(f *FakeStageRepository, id uuid.UUID) {
				e := f.StoredEntry(id)
				e.Times["s1"] = "1:15.500"
				e.Version = 4
				f.SeedEntry(e)
			},
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "1:15.5"}
			},
			verify: func(t *testing.T, res TimeResult, f *FakeStageRepository, sink *FakeAuditSink, sched *FakeScheduler, id uuid.UUID) {
				o := *res.Success
				assert.False(t, o.Changed)
				assert.Equal(t, int64(4), o.Version)
				assert.NotContains(t, f.Trace(), "WriteEntryIfVersion")
				assert.Empty(t, sink.Kinds())
				assert.Empty(t, sched.Queued())
			},
		},
		{
			name: "malformed time",
			kind: stagedomain.KindQualification,
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "1:75.000"}
			},
			wantFail: ErrInvalidSegmentTime,
		},
		{
			name: "non-positive time",
			kind: stagedomain.KindQualification,
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "0"}
			},
			wantFail: ErrInvalidSegmentTime,
		},
		{
			name: "unknown segment",
			kind: stagedomain.KindQualification,
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s9", Raw: "61000"}
			},
			wantFail: ErrUnknownSegment,
		},
		{
			name: "entry of another stage",
			kind: stagedomain.KindQualification,
			setup: func(f *FakeStageRepository, id uuid.UUID) {
				e := f.StoredEntry(id)
				e.StageKey = "other"
				f.SeedEntry(e)
			},
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "61000"}
			},
			wantFail: ErrUnknownEntry,
		},
		{
			name: "unknown entry",
			kind: stagedomain.KindQualification,
			req: func(uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: uuid.New(), Segment: "s1", Raw: "61000"}
			},
			wantFail: versioned.ErrNotFound,
		},
		{
			name: "pinned stale version is rejected",
			kind: stagedomain.KindQualification,
			setup: func(f *FakeStageRepository, id uuid.UUID) {
				e := f.StoredEntry(id)
				e.Version = 5
				f.SeedEntry(e)
			},
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "61000", ExpectedVersion: pin(2)}
			},
			wantFail: versioned.ErrVersionConflict,
			verify: func(t *testing.T, res TimeResult, f *FakeStageRepository, sink *FakeAuditSink, sched *FakeScheduler, id uuid.UUID) {
				var exhausted *versioned.ExhaustedError
				require.True(t, errors.As(*res.Failure, &exhausted))
				current, ok := versioned.CurrentVersion(*res.Failure)
				assert.True(t, ok)
				assert.Equal(t, int64(5), current)
				assert.Empty(t, f.StoredEntry(id).Times)
			},
		},
		{
			name: "eliminated finals entry",
			kind: stagedomain.KindFinals,
			setup: func(f *FakeStageRepository, id uuid.UUID) {
				e := f.StoredEntry(id)
				e.Eliminated = true
				f.SeedEntry(e)
			},
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "61000"}
			},
			wantFail: ErrEntryEliminated,
		},
		{
			name: "finals segment already applied",
			kind: stagedomain.KindFinals,
			setup: func(f *FakeStageRepository, _ uuid.UUID) {
				st := f.StoredStage("st")
				st.AppliedSegments = []string{"s1"}
				f.SeedStage(st)
			},
			req: func(id uuid.UUID) SubmitTimeRequest {
				return SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "61000"}
			},
			wantFail: ErrSegmentAlreadyApplied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeStageRepository()
			seedStage(repo, "st", tt.kind, "s1", "s2")
			id := seedEntry(repo, "st", "a", 0, 3, nil)
			if tt.setup != nil {
				tt.setup(repo, id)
			}
			repo.ResetTrace()
			sink := &FakeAuditSink{}
			sched := &FakeScheduler{}
			s := newTestService(repo, sink, sched, testSettings())

			res, err := s.SubmitSegmentTime(context.Background(), tt.req(id))
			require.NoError(t, err)
			if tt.wantFail != nil {
				require.True(t, res.IsFailure(), "expected failure result")
				assert.ErrorIs(t, *res.Failure, tt.wantFail)
				assert.Empty(t, sched.Queued())
			} else {
				require.True(t, res.IsSuccess(), "expected success result")
			}
			if tt.verify != nil {
				tt.verify(t, res, repo, sink, sched, id)
			}
		})
	}
}

func TestStageService_SubmitSegmentTimeRecalculatesInlineWithoutQueue(t *testing.T) {
	repo := NewFakeStageRepository()
	seedStage(repo, "sd", stagedomain.KindSuddenDeath, "s1", "s2")
	id := seedEntry(repo, "sd", "a", 0, 0, map[string]string{"s1": "1:00.000"})
	s := newTestService(repo, &FakeAuditSink{}, nil, testSettings())

	res, err := s.SubmitSegmentTime(context.Background(), SubmitTimeRequest{StageKey: "sd", EntryID: id, Segment: "s2", Raw: "30.25"})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	stored := repo.StoredEntry(id)
	require.NotNil(t, stored.TotalMs)
	assert.Equal(t, int64(90250), *stored.TotalMs)
	require.NotNil(t, stored.Rank)
	assert.Equal(t, 1, *stored.Rank)
	assert.Equal(t, int64(2), stored.Version)
	assert.True(t, (*res.Success).Recalculated)
}

func TestStageService_SubmitSegmentTimeFallsBackWhenEnqueueFails(t *testing.T) {
	repo := NewFakeStageRepository()
	seedStage(repo, "sd", stagedomain.KindSuddenDeath, "s1")
	id := seedEntry(repo, "sd", "a", 0, 0, nil)
	sched := &FakeScheduler{Err: errors.New("queue down")}
	s := newTestService(repo, &FakeAuditSink{}, sched, testSettings())

	res, err := s.SubmitSegmentTime(context.Background(), SubmitTimeRequest{StageKey: "sd", EntryID: id, Segment: "s1", Raw: "45000"})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	require.NotNil(t, repo.StoredEntry(id).Rank)
	assert.True(t, (*res.Success).Recalculated)
}

func TestStageService_ConcurrentTimesOnOneEntryAllLand(t *testing.T) {
	repo := NewFakeStageRepository()
	segments := []string{"s1", "s2", "s3", "s4"}
	seedStage(repo, "st", stagedomain.KindQualification, segments...)
	id := seedEntry(repo, "st", "a", 0, 0, nil)
	sched := &FakeScheduler{}
	s := newTestService(repo, &FakeAuditSink{}, sched, testSettings())
	s.runner = versioned.NewRunner(nil, versioned.Policy{MaxRetries: 10}, slog.Default())

	var wg sync.WaitGroup
	for _, seg := range segments {
		wg.Add(1)
		go func(seg string) {
			defer wg.Done()
			res, err := s.SubmitSegmentTime(context.Background(), SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: seg, Raw: "50000"})
			assert.NoError(t, err)
			assert.True(t, res.IsSuccess())
		}(seg)
	}
	wg.Wait()

	stored := repo.StoredEntry(id)
	assert.Len(t, stored.Times, len(segments))
	assert.Equal(t, int64(len(segments)), stored.Version)
	assert.Len(t, sched.Queued(), len(segments))
}

func TestStageService_ImportSegmentTimes(t *testing.T) {
	sheet := "competitor,s1,s2\n" +
		"a,1:00.000,59.5\n" +
		"b,bad,1:00\n" +
		"ghost,1:00,1:00\n" +
		"c,1:00.000,\n"

	repo := NewFakeStageRepository()
	seedStage(repo, "st", stagedomain.KindQualification, "s1", "s2")
	a := seedEntry(repo, "st", "a", 0, 0, nil)
	b := seedEntry(repo, "st", "b", 1, 0, nil)
	c := seedEntry(repo, "st", "c", 2, 0, map[string]string{"s1": "1:00.000"})
	sink := &FakeAuditSink{}
	sched := &FakeScheduler{}
	s := newTestService(repo, sink, sched, testSettings())

	res, err := s.ImportSegmentTimes(context.Background(), ImportRequest{StageKey: "st", Filename: "times.csv", Data: []byte(sheet), SubmittedBy: "official"})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	o := *res.Success
	assert.Equal(t, 2, o.Applied)
	assert.Equal(t, 1, o.Unchanged)
	require.Len(t, o.Rejected, 2)
	assert.Equal(t, ImportRejection{Line: 3, CompetitorID: "b", Segment: "s1", Reason: o.Rejected[0].Reason}, o.Rejected[0])
	assert.Equal(t, 4, o.Rejected[1].Line)
	assert.Equal(t, "ghost", o.Rejected[1].CompetitorID)

	assert.Equal(t, map[string]string{"s1": "1:00.000", "s2": "0:59.500"}, repo.StoredEntry(a).Times)
	assert.Equal(t, map[string]string{"s2": "1:00.000"}, repo.StoredEntry(b).Times)
	assert.Equal(t, int64(0), repo.StoredEntry(c).Version)
	assert.Equal(t, []string{"st"}, sched.Queued())
	assert.False(t, o.Recalculated)
	assert.Equal(t, []string{audit.KindSegmentRecorded, audit.KindSegmentRecorded}, sink.Kinds())
}

func TestStageService_ImportSegmentTimesRecalculatesInlineWithoutQueue(t *testing.T) {
	repo := NewFakeStageRepository()
	seedStage(repo, "sd", stagedomain.KindSuddenDeath, "s1")
	a := seedEntry(repo, "sd", "a", 0, 0, nil)
	b := seedEntry(repo, "sd", "b", 1, 0, nil)
	s := newTestService(repo, &FakeAuditSink{}, nil, testSettings())

	res, err := s.ImportSegmentTimes(context.Background(), ImportRequest{
		StageKey: "sd", Filename: "times.csv", Data: []byte("competitor,s1\na,1:05.000\nb,58.000\n"),
	})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, 2, (*res.Success).Applied)
	assert.True(t, (*res.Success).Recalculated)

	require.NotNil(t, repo.StoredEntry(b).Rank)
	assert.Equal(t, 1, *repo.StoredEntry(b).Rank)
	require.NotNil(t, repo.StoredEntry(a).Rank)
	assert.Equal(t, 2, *repo.StoredEntry(a).Rank)
}

func TestStageService_ImportSegmentTimesRejectsWholeSheet(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		wantFail error
	}{
		{name: "unsupported file", filename: "times.pdf", data: "x", wantFail: ErrValidation},
		{name: "missing header", filename: "times.csv", data: "name,s1\na,1000\n", wantFail: ErrValidation},
		{name: "unknown segment column", filename: "times.csv", data: "entry,s1,s7\na,1000,1000\n", wantFail: ErrUnknownSegment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeStageRepository()
			seedStage(repo, "st", stagedomain.KindQualification, "s1")
			seedEntry(repo, "st", "a", 0, 0, nil)
			s := newTestService(repo, &FakeAuditSink{}, &FakeScheduler{}, testSettings())

			res, err := s.ImportSegmentTimes(context.Background(), ImportRequest{StageKey: "st", Filename: tt.filename, Data: []byte(tt.data)})
			require.NoError(t, err)
			require.True(t, res.IsFailure())
			assert.ErrorIs(t, *res.Failure, tt.wantFail)
			assert.NotContains(t, repo.Trace(), "WriteEntryIfVersion")
		})
	}
}

func TestStageService_SubmitSegmentTimeInfrastructureError(t *testing.T) {
	repo := NewFakeStageRepository()
	seedStage(repo, "st", stagedomain.KindQualification, "s1")
	id := seedEntry(repo, "st", "a", 0, 0, nil)
	repo.WriteEntryIfVersionFunc = func(context.Context, bun.IDB, uuid.UUID, int64, *stagedb.StageEntry) (int64, error) {
		return 0, errors.New("connection reset")
	}
	s := newTestService(repo, &FakeAuditSink{}, &FakeScheduler{}, testSettings())

	_, err := s.SubmitSegmentTime(context.Background(), SubmitTimeRequest{StageKey: "st", EntryID: id, Segment: "s1", Raw: "1000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
