package stageservice

import (
	"context"
	"sort"
	"sync"

	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Stage Repo
// ------------------------

// FakeStageRepository is an in-memory versioned store whose methods can be overridden per test.
type FakeStageRepository struct {
	mu    sync.Mutex
	trace []string

	stages  map[string]*stagedb.Stage
	entries map[uuid.UUID]*stagedb.StageEntry

	ReadEntryFunc           func(ctx context.Context, db bun.IDB, id uuid.UUID) (*stagedb.StageEntry, error)
	WriteEntryIfVersionFunc func(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, e *stagedb.StageEntry) (int64, error)
	ListByStageFunc         func(ctx context.Context, db bun.IDB, stageKey string) ([]*stagedb.StageEntry, error)
}

func NewFakeStageRepository() *FakeStageRepository {
	return &FakeStageRepository{
		trace:   []string{},
		stages:  map[string]*stagedb.Stage{},
		entries: map[uuid.UUID]*stagedb.StageEntry{},
	}
}

func (f *FakeStageRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeStageRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// ResetTrace forgets the calls made during test setup.
func (f *FakeStageRepository) ResetTrace() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = []string{}
}

func (f *FakeStageRepository) SeedStage(st *stagedb.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[st.Key] = cloneStage(st)
}

func (f *FakeStageRepository) SeedEntry(e *stagedb.StageEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = cloneEntry(e)
}

func (f *FakeStageRepository) StoredStage(key string) *stagedb.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneStage(f.stages[key])
}

func (f *FakeStageRepository) StoredEntry(id uuid.UUID) *stagedb.StageEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEntry(f.entries[id])
}

func cloneStage(st *stagedb.Stage) *stagedb.Stage {
	if st == nil {
		return nil
	}
	c := *st
	c.Segments = append([]string(nil), st.Segments...)
	c.AppliedSegments = append([]string{}, st.AppliedSegments...)
	if st.ChampionEntryID != nil {
		id := *st.ChampionEntryID
		c.ChampionEntryID = &id
	}
	return &c
}

func cloneEntry(e *stagedb.StageEntry) *stagedb.StageEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Times = make(map[string]string, len(e.Times))
	for k, v := range e.Times {
		c.Times[k] = v
	}
	c.TotalMs = clonePtr(e.TotalMs)
	c.Score = clonePtr(e.Score)
	c.Rank = clonePtr(e.Rank)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// --- Repository Interface Implementation ---

func (f *FakeStageRepository) CreateStage(ctx context.Context, db bun.IDB, st *stagedb.Stage) error {
	f.record("CreateStage")
	f.mu.Lock()
	defer f.mu.Unlock()
	st.Version = 0
	f.stages[st.Key] = cloneStage(st)
	return nil
}

func (f *FakeStageRepository) ReadStage(ctx context.Context, db bun.IDB, key string) (*stagedb.Stage, error) {
	f.record("ReadStage")
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stages[key]
	if !ok {
		return nil, stagedb.ErrStageNotFound
	}
	return cloneStage(st), nil
}

func (f *FakeStageRepository) WriteStageIfVersion(ctx context.Context, db bun.IDB, key string, expected int64, st *stagedb.Stage) (int64, error) {
	f.record("WriteStageIfVersion")
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.stages[key]
	if !ok {
		return versioned.NotFoundVersion, stagedb.ErrStageNotFound
	}
	if stored.Version != expected {
		return stored.Version, &versioned.ConflictError{Expected: expected, Current: stored.Version}
	}
	next := cloneStage(st)
	next.Version = expected + 1
	f.stages[key] = next
	return next.Version, nil
}

func (f *FakeStageRepository) ReadEntry(ctx context.Context, db bun.IDB, id uuid.UUID) (*stagedb.StageEntry, error) {
	f.record("ReadEntry")
	if f.ReadEntryFunc != nil {
		return f.ReadEntryFunc(ctx, db, id)
	}
	return f.readEntry(id)
}

func (f *FakeStageRepository) readEntry(id uuid.UUID) (*stagedb.StageEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, stagedb.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

func (f *FakeStageRepository) WriteEntryIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, e *stagedb.StageEntry) (int64, error) {
	f.record("WriteEntryIfVersion")
	if f.WriteEntryIfVersionFunc != nil {
		return f.WriteEntryIfVersionFunc(ctx, db, id, expected, e)
	}
	return f.writeEntry(id, expected, e)
}

func (f *FakeStageRepository) writeEntry(id uuid.UUID, expected int64, e *stagedb.StageEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.entries[id]
	if !ok {
		return versioned.NotFoundVersion, stagedb.ErrEntryNotFound
	}
	if stored.Version != expected {
		return stored.Version, &versioned.ConflictError{Expected: expected, Current: stored.Version}
	}
	next := cloneEntry(e)
	next.Version = expected + 1
	f.entries[id] = next
	return next.Version, nil
}

func (f *FakeStageRepository) ListByStage(ctx context.Context, db bun.IDB, stageKey string) ([]*stagedb.StageEntry, error) {
	f.record("ListByStage")
	if f.ListByStageFunc != nil {
		return f.ListByStageFunc(ctx, db, stageKey)
	}
	return f.listByStage(stageKey), nil
}

func (f *FakeStageRepository) listByStage(stageKey string) []*stagedb.StageEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*stagedb.StageEntry{}
	for _, e := range f.entries {
		if e.StageKey == stageKey {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (f *FakeStageRepository) InsertEntries(ctx context.Context, db bun.IDB, entries []*stagedb.StageEntry) error {
	f.record("InsertEntries")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Times == nil {
			e.Times = map[string]string{}
		}
		e.Version = 0
		f.entries[e.ID] = cloneEntry(e)
	}
	return nil
}

func (f *FakeStageRepository) FindEntryByCompetitor(ctx context.Context, db bun.IDB, stageKey, competitorID string) (*stagedb.StageEntry, error) {
	f.record("FindEntryByCompetitor")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.StageKey == stageKey && e.CompetitorID == competitorID {
			return cloneEntry(e), nil
		}
	}
	return nil, stagedb.ErrEntryNotFound
}

var _ stagedb.Repository = (*FakeStageRepository)(nil)

// ------------------------
// Fake Audit Sink
// ------------------------

type FakeAuditSink struct {
	mu     sync.Mutex
	events []audit.Event
	Err    error
}

func (f *FakeAuditSink) Append(_ context.Context, e audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.Err
}

func (f *FakeAuditSink) Kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

var _ audit.Sink = (*FakeAuditSink)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type FakeScheduler struct {
	mu     sync.Mutex
	queued []string
	Err    error
}

func (f *FakeScheduler) EnqueueRecalculation(_ context.Context, stageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.queued = append(f.queued, stageKey)
	return nil
}

func (f *FakeScheduler) Queued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queued...)
}

var _ RecalculationScheduler = (*FakeScheduler)(nil)
