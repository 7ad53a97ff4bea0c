package stageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/uptrace/bun"
)

const maxStageKeyLength = 100

// Stage keys scope the standings topic, so they must be a single subject token.
var stageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CreateStage registers a stage at version 0.
func (s *StageService) CreateStage(ctx context.Context, req CreateStageRequest) (StageResult, error) {
	key := strings.TrimSpace(req.Key)

	return withTelemetry(s, ctx, "CreateStage", key, func(ctx context.Context) (StageResult, error) {
		if len(key) > maxStageKeyLength || !stageKeyPattern.MatchString(key) {
			return results.FailureResult[*StageView, error](ErrInvalidStageKey), nil
		}
		if !req.Kind.Valid() {
			return results.FailureResult[*StageView, error](fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)), nil
		}
		segments := make([]string, len(req.Segments))
		for i, seg := range req.Segments {
			segments[i] = strings.TrimSpace(seg)
		}
		if err := stagedomain.ValidateSegments(segments); err != nil {
			return results.FailureResult[*StageView, error](err), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (StageResult, error) {
			_, err := s.repo.ReadStage(ctx, db, key)
			switch {
			case err == nil:
				return results.FailureResult[*StageView, error](fmt.Errorf("%w: %s", ErrStageExists, key)), nil
			case !errors.Is(err, versioned.ErrNotFound):
				return StageResult{}, err
			}

			st := &stagedb.Stage{
				Key:             key,
				Kind:            req.Kind,
				Segments:        segments,
				AppliedSegments: []string{},
			}
			if err := s.repo.CreateStage(ctx, db, st); err != nil {
				return StageResult{}, err
			}
			return results.SuccessResult[*StageView, error](toStageView(st)), nil
		})
	})
}

// RegisterEntries appends competitors to a stage in the given order.
func (s *StageService) RegisterEntries(ctx context.Context, stageKey string, competitorIDs []string) (EntriesResult, error) {
	return withTelemetry(s, ctx, "RegisterEntries", stageKey, func(ctx context.Context) (EntriesResult, error) {
		ids := make([]string, 0, len(competitorIDs))
		seen := make(map[string]struct{}, len(competitorIDs))
		for _, raw := range competitorIDs {
			id := strings.TrimSpace(raw)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				return results.FailureResult[[]EntryView, error](fmt.Errorf("%w: %s", ErrDuplicateCompetitor, id)), nil
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return results.FailureResult[[]EntryView, error](ErrNoCompetitors), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (EntriesResult, error) {
			st, err := s.repo.ReadStage(ctx, db, stageKey)
			if err != nil {
				if errors.Is(err, versioned.ErrNotFound) {
					return results.FailureResult[[]EntryView, error](err), nil
				}
				return EntriesResult{}, err
			}
			if st.Completed {
				return results.FailureResult[[]EntryView, error](ErrStageCompleted), nil
			}
			if st.Kind.UsesLives() && len(st.AppliedSegments) > 0 {
				return results.FailureResult[[]EntryView, error](ErrFinalsStarted), nil
			}

			existing, err := s.repo.ListByStage(ctx, db, stageKey)
			if err != nil {
				return EntriesResult{}, err
			}
			nextOrder := 0
			for _, e := range existing {
				if _, dup := seen[e.CompetitorID]; dup {
					return results.FailureResult[[]EntryView, error](fmt.Errorf("%w: %s", ErrDuplicateCompetitor, e.CompetitorID)), nil
				}
				if e.Order >= nextOrder {
					nextOrder = e.Order + 1
				}
			}

			lives := 0
			if st.Kind.UsesLives() {
				lives = s.settings.StartingLives
			}
			entries := make([]*stagedb.StageEntry, len(ids))
			for i, id := range ids {
				entries[i] = &stagedb.StageEntry{
					StageKey:     stageKey,
					CompetitorID: id,
					Order:        nextOrder + i,
					Times:        map[string]string{},
					Lives:        lives,
				}
			}
			if err := s.repo.InsertEntries(ctx, db, entries); err != nil {
				return EntriesResult{}, err
			}

			views := make([]EntryView, len(entries))
			for i, e := range entries {
				views[i] = toEntryView(e)
			}
			s.logger.InfoContext(ctx, "Stage entries registered",
				slog.String("stage_key", stageKey),
				slog.Int("count", len(entries)),
			)
			return results.SuccessResult[[]EntryView, error](views), nil
		})
	})
}

// GetStandings reads the stage and its entries.
func (s *StageService) GetStandings(ctx context.Context, stageKey string) (StandingsResult, error) {
	st, err := s.repo.ReadStage(ctx, nil, stageKey)
	if err != nil {
		if errors.Is(err, versioned.ErrNotFound) {
			return results.FailureResult[*Standings, error](err), nil
		}
		return StandingsResult{}, fmt.Errorf("failed to get stage: %w", err)
	}
	entries, err := s.repo.ListByStage(ctx, nil, stageKey)
	if err != nil {
		return StandingsResult{}, fmt.Errorf("failed to list stage entries: %w", err)
	}

	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = toEntryView(e)
	}
	sortStandings(views)

	return results.SuccessResult[*Standings, error](&Standings{
		Stage:   *toStageView(st),
		Entries: views,
	}), nil
}
