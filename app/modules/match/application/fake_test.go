package matchservice

import (
	"context"
	"sync"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	matchdb "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Match Repo
// ------------------------

// FakeMatchRepository is an in-memory versioned store whose methods can be overridden per test.
type FakeMatchRepository struct {
	mu    sync.Mutex
	trace []string

	matches map[uuid.UUID]*matchdb.Match
	reports []matchdb.MatchReport
	links   map[string][]string

	ReadFunc            func(ctx context.Context, db bun.IDB, id uuid.UUID) (*matchdb.Match, error)
	WriteIfVersionFunc  func(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, m *matchdb.Match) (int64, error)
	CreateFunc          func(ctx context.Context, db bun.IDB, m *matchdb.Match) error
	InsertReportFunc    func(ctx context.Context, db bun.IDB, r *matchdb.MatchReport) error
	LinkAccountFunc     func(ctx context.Context, db bun.IDB, primary, linked string) error
	LinkedPrimariesFunc func(ctx context.Context, db bun.IDB, userID string) ([]string, error)
}

func NewFakeMatchRepository() *FakeMatchRepository {
	return &FakeMatchRepository{
		trace:   []string{},
		matches: map[uuid.UUID]*matchdb.Match{},
		links:   map[string][]string{},
	}
}

func (f *FakeMatchRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeMatchRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Seed stores a match as-is.
func (f *FakeMatchRepository) Seed(m *matchdb.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[m.ID] = cloneMatch(m)
}

// Stored returns a copy of the persisted match.
func (f *FakeMatchRepository) Stored(id uuid.UUID) *matchdb.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMatch(f.matches[id])
}

func (f *FakeMatchRepository) Reports() []matchdb.MatchReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]matchdb.MatchReport(nil), f.reports...)
}

func cloneMatch(m *matchdb.Match) *matchdb.Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.Side1Report != nil {
		r := *m.Side1Report
		r.Values = r.Values.Clone()
		c.Side1Report = &r
	}
	if m.Side2Report != nil {
		r := *m.Side2Report
		r.Values = r.Values.Clone()
		c.Side2Report = &r
	}
	c.Canonical = m.Canonical.Clone()
	return &c
}

// --- Repository Interface Implementation ---

func (f *FakeMatchRepository) Read(ctx context.Context, db bun.IDB, id uuid.UUID) (*matchdb.Match, error) {
	f.record("Read")
	if f.ReadFunc != nil {
		return f.ReadFunc(ctx, db, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, matchdb.ErrNotFound
	}
	return cloneMatch(m), nil
}

func (f *FakeMatchRepository) WriteIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, m *matchdb.Match) (int64, error) {
	f.record("WriteIfVersion")
	if f.WriteIfVersionFunc != nil {
		return f.WriteIfVersionFunc(ctx, db, id, expected, m)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.matches[id]
	if !ok {
		return versioned.NotFoundVersion, matchdb.ErrNotFound
	}
	if stored.Version != expected {
		return stored.Version, &versioned.ConflictError{Expected: expected, Current: stored.Version}
	}
	next := cloneMatch(m)
	next.Version = expected + 1
	f.matches[id] = next
	return next.Version, nil
}

func (f *FakeMatchRepository) Create(ctx context.Context, db bun.IDB, m *matchdb.Match) error {
	f.record("Create")
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, db, m)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.Version = 0
	f.matches[m.ID] = cloneMatch(m)
	return nil
}

func (f *FakeMatchRepository) InsertReport(ctx context.Context, db bun.IDB, r *matchdb.MatchReport) error {
	f.record("InsertReport")
	if f.InsertReportFunc != nil {
		return f.InsertReportFunc(ctx, db, r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reports {
		if f.reports[i].MatchID == r.MatchID && f.reports[i].Side == r.Side {
			f.reports[i].Superseded = true
		}
	}
	f.reports = append(f.reports, *r)
	return nil
}

func (f *FakeMatchRepository) ListReports(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]matchdb.MatchReport, error) {
	f.record("ListReports")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []matchdb.MatchReport
	for _, r := range f.reports {
		if r.MatchID == matchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeMatchRepository) LinkAccount(ctx context.Context, db bun.IDB, primary, linked string) error {
	f.record("LinkAccount")
	if f.LinkAccountFunc != nil {
		return f.LinkAccountFunc(ctx, db, primary, linked)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[linked] = append(f.links[linked], primary)
	return nil
}

func (f *FakeMatchRepository) LinkedPrimaries(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
	f.record("LinkedPrimaries")
	if f.LinkedPrimariesFunc != nil {
		return f.LinkedPrimariesFunc(ctx, db, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.links[userID]...), nil
}

var _ matchdb.Repository = (*FakeMatchRepository)(nil)

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

func newMatch(side1, side2 string) *matchdb.Match {
	return &matchdb.Match{ID: uuid.New(), Side1UserID: side1, Side2UserID: side2}
}

func values(v ...int) matchdomain.Values { return v }
