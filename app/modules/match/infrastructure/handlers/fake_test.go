package matchhandlers

import (
	"context"

	matchservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/application"
	"github.com/google/uuid"
)

// ------------------------
// Fake Match Service
// ------------------------

type FakeMatchService struct {
	trace []string

	CreateMatchFunc  func(ctx context.Context, req matchservice.CreateMatchRequest) (matchservice.MatchResult, error)
	GetMatchFunc     func(ctx context.Context, matchID uuid.UUID) (matchservice.MatchResult, error)
	SubmitReportFunc func(ctx context.Context, req matchservice.SubmitReportRequest) (matchservice.ReportResult, error)
	LinkAccountFunc  func(ctx context.Context, primary, linked string) (matchservice.LinkResult, error)
}

func NewFakeMatchService() *FakeMatchService {
	return &FakeMatchService{
		trace: []string{},
	}
}

func (f *FakeMatchService) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeMatchService) CreateMatch(ctx context.Context, req matchservice.CreateMatchRequest) (matchservice.MatchResult, error) {
	f.record("CreateMatch")
	if f.CreateMatchFunc != nil {
		return f.CreateMatchFunc(ctx, req)
	}
	return matchservice.MatchResult{}, nil
}

func (f *FakeMatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (matchservice.MatchResult, error) {
	f.record("GetMatch")
	if f.GetMatchFunc != nil {
		return f.GetMatchFunc(ctx, matchID)
	}
	return matchservice.MatchResult{}, nil
}

func (f *FakeMatchService) SubmitReport(ctx context.Context, req matchservice.SubmitReportRequest) (matchservice.ReportResult, error) {
	f.record("SubmitReport")
	if f.SubmitReportFunc != nil {
		return f.SubmitReportFunc(ctx, req)
	}
	return matchservice.ReportResult{}, nil
}

func (f *FakeMatchService) LinkAccount(ctx context.Context, primary, linked string) (matchservice.LinkResult, error) {
	f.record("LinkAccount")
	if f.LinkAccountFunc != nil {
		return f.LinkAccountFunc(ctx, primary, linked)
	}
	return matchservice.LinkResult{}, nil
}

// --- Accessors for assertions ---

func (f *FakeMatchService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ matchservice.Service = (*FakeMatchService)(nil)
