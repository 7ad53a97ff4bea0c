package stagehandlers

import (
	"context"

	stageservice "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/application"
)

// ------------------------
// Fake Stage Service
// ------------------------

type FakeStageService struct {
	trace []string

	CreateStageFunc        func(ctx context.Context, req stageservice.CreateStageRequest) (stageservice.StageResult, error)
	RegisterEntriesFunc    func(ctx context.Context, stageKey string, competitorIDs []string) (stageservice.EntriesResult, error)
	SubmitSegmentTimeFunc  func(ctx context.Context, req stageservice.SubmitTimeRequest) (stageservice.TimeResult, error)
	ImportSegmentTimesFunc func(ctx context.Context, req stageservice.ImportRequest) (stageservice.ImportResult, error)
	RecalculateStageFunc   func(ctx context.Context, stageKey string) (stageservice.RecalculationResult, error)
	ApplyFinalsSegmentFunc func(ctx context.Context, stageKey, segment, actor string) (stageservice.SegmentResult, error)
	ResetLivesFunc         func(ctx context.Context, stageKey, actor string) (stageservice.ResetResult, error)
	EliminateEntryFunc     func(ctx context.Context, req stageservice.EliminateRequest) (stageservice.EliminateResult, error)
	GetStandingsFunc       func(ctx context.Context, stageKey string) (stageservice.StandingsResult, error)
}

func NewFakeStageService() *FakeStageService {
	return &FakeStageService{
		trace: []string{},
	}
}

func (f *FakeStageService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeStageService) CreateStage(ctx context.Context, req stageservice.CreateStageRequest) (stageservice.StageResult, error) {
	f.record("CreateStage")
	if f.CreateStageFunc != nil {
		return f.CreateStageFunc(ctx, req)
	}
	return stageservice.StageResult{}, nil
}

func (f *FakeStageService) RegisterEntries(ctx context.Context, stageKey string, competitorIDs []string) (stageservice.EntriesResult, error) {
	f.record("RegisterEntries")
	if f.RegisterEntriesFunc != nil {
		return f.RegisterEntriesFunc(ctx, stageKey, competitorIDs)
	}
	return stageservice.EntriesResult{}, nil
}

func (f *FakeStageService) SubmitSegmentTime(ctx context.Context, req stageservice.SubmitTimeRequest) (stageservice.TimeResult, error) {
	f.record("SubmitSegmentTime")
	if f.SubmitSegmentTimeFunc != nil {
		return f.SubmitSegmentTimeFunc(ctx, req)
	}
	return stageservice.TimeResult{}, nil
}

func (f *FakeStageService) ImportSegmentTimes(ctx context.Context, req stageservice.ImportRequest) (stageservice.ImportResult, error) {
	f.record("ImportSegmentTimes")
	if f.ImportSegmentTimesFunc != nil {
		return f.ImportSegmentTimesFunc(ctx, req)
	}
	return stageservice.ImportResult{}, nil
}

func (f *FakeStageService) RecalculateStage(ctx context.Context, stageKey string) (stageservice.RecalculationResult, error) {
	f.record("RecalculateStage")
	if f.RecalculateStageFunc != nil {
		return f.RecalculateStageFunc(ctx, stageKey)
	}
	return stageservice.RecalculationResult{}, nil
}

func (f *FakeStageService) ApplyFinalsSegment(ctx context.Context, stageKey, segment, actor string) (stageservice.SegmentResult, error) {
	f.record("ApplyFinalsSegment")
	if f.ApplyFinalsSegmentFunc != nil {
		return f.ApplyFinalsSegmentFunc(ctx, stageKey, segment, actor)
	}
	return stageservice.SegmentResult{}, nil
}

func (f *FakeStageService) ResetLives(ctx context.Context, stageKey, actor string) (stageservice.ResetResult, error) {
	f.record("ResetLives")
	if f.ResetLivesFunc != nil {
		return f.ResetLivesFunc(ctx, stageKey, actor)
	}
	return stageservice.ResetResult{}, nil
}

func (f *FakeStageService) EliminateEntry(ctx context.Context, req stageservice.EliminateRequest) (stageservice.EliminateResult, error) {
	f.record("EliminateEntry")
	if f.EliminateEntryFunc != nil {
		return f.EliminateEntryFunc(ctx, req)
	}
	return stageservice.EliminateResult{}, nil
}

func (f *FakeStageService) GetStandings(ctx context.Context, stageKey string) (stageservice.StandingsResult, error) {
	f.record("GetStandings")
	if f.GetStandingsFunc != nil {
		return f.GetStandingsFunc(ctx, stageKey)
	}
	return stageservice.StandingsResult{}, nil
}

func (f *FakeStageService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ stageservice.Service = (*FakeStageService)(nil)
