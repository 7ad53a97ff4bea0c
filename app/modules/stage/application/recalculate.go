package stageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RecalculateStage recomputes total, score and rank for every entry of a stage.
func (s *StageService) RecalculateStage(ctx context.Context, stageKey string) (RecalculationResult, error) {
	return withTelemetry(s, ctx, "RecalculateStage", stageKey, func(ctx context.Context) (RecalculationResult, error) {
		outcome, err := s.recalculate(ctx, stageKey)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*RecalculationOutcome, error](err), nil
			}
			return RecalculationResult{}, err
		}
		return results.SuccessResult[*RecalculationOutcome, error](outcome), nil
	})
}

// derived is what a recalculation writes onto one entry.
type derived struct {
	totalMs *int64
	score   *int
	rank    *int
}

func (d derived) equal(e *stagedb.StageEntry) bool {
	return eqPtr(d.totalMs, e.TotalMs) && eqPtr(d.score, e.Score) && eqPtr(d.rank, e.Rank)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// recalculate is a full recompute from the listed raw times. Each entry is
// committed on its own; an entry whose times changed after the listing is
// skipped as stale, since the change that made it stale schedules another pass.
func (s *StageService) recalculate(ctx context.Context, stageKey string) (*RecalculationOutcome, error) {
	st, err := s.repo.ReadStage(ctx, nil, stageKey)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByStage(ctx, nil, stageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage entries: %w", err)
	}

	plan := computeDerived(st, entries, s.settings.MaxPoints, s.settings.MinPoints)

	outcome := &RecalculationOutcome{StageKey: stageKey, Stale: []uuid.UUID{}}
	for _, d := range plan {
		if d.rank != nil {
			outcome.Ranked++
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.RecalcWorkers)

	for _, listed := range entries {
		want := plan[listed.ID]
		g.Go(func() error {
			_, err := versioned.Update(gctx, s.runner, "RecalculateStage", s.entries, listed.ID, listed.Version, func(cur *stagedb.StageEntry) error {
				if !cur.SameInputs(listed) {
					return ErrStaleInput
				}
				if want.equal(cur) {
					return errNoChange
				}
				cur.TotalMs = want.totalMs
				cur.Score = want.score
				cur.Rank = want.rank
				return nil
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				outcome.Updated++
			case errors.Is(err, errNoChange):
				outcome.Unchanged++
			case errors.Is(err, ErrStaleInput), errors.Is(err, versioned.ErrNotFound):
				outcome.Stale = append(outcome.Stale, listed.ID)
			default:
				return fmt.Errorf("failed to commit entry %s: %w", listed.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Stage recalculated",
		slog.String("stage_key", stageKey),
		slog.Int("updated", outcome.Updated),
		slog.Int("unchanged", outcome.Unchanged),
		slog.Int("stale", len(outcome.Stale)),
		slog.Int("ranked", outcome.Ranked),
	)

	if outcome.Updated > 0 {
		s.appendAudit(ctx, audit.Event{
			Kind:       audit.KindStageRecomputed,
			EntityType: "stage",
			EntityID:   stageKey,
			Version:    st.Version,
			Detail: map[string]any{
				"updated":   outcome.Updated,
				"unchanged": outcome.Unchanged,
				"stale":     len(outcome.Stale),
			},
		})
	}
	return outcome, nil
}

// computeDerived runs aggregation, scoring and ranking over a snapshot of entries.
func computeDerived(st *stagedb.Stage, entries []*stagedb.StageEntry, maxPoints, minPoints int) map[uuid.UUID]derived {
	qualification := st.Kind == stagedomain.KindQualification

	var scores map[string]int
	if qualification {
		inputs := make([]stagedomain.ScoreInput, len(entries))
		for i, e := range entries {
			inputs[i] = stagedomain.ScoreInput{
				EntryID: e.ID.String(),
				Times:   stagedomain.ValidTimes(e.Times, st.Segments),
			}
		}
		scores = stagedomain.ScoreQualification(inputs, st.Segments, maxPoints, minPoints)
	}

	out := make(map[uuid.UUID]derived, len(entries))
	standings := make([]stagedomain.Standing, len(entries))
	for i, e := range entries {
		total, complete := stagedomain.AggregateTotal(e.Times, st.Segments)
		var d derived
		if complete {
			ms := total.Milliseconds()
			d.totalMs = &ms
		}
		if qualification {
			score := scores[e.ID.String()]
			d.score = &score
		}
		out[e.ID] = d
		standings[i] = stagedomain.Standing{
			EntryID:  e.ID.String(),
			Score:    scores[e.ID.String()],
			Total:    total,
			Complete: complete,
			Order:    e.Order,
		}
	}

	for _, p := range stagedomain.Rank(st.Kind, standings) {
		id, err := uuid.Parse(p.EntryID)
		if err != nil {
			continue
		}
		d := out[id]
		rank := p.Rank
		d.rank = &rank
		out[id] = d
	}
	return out
}
