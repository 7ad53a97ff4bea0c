package stageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApplyFinalsSegment takes a life from the slowest active competitors of one
// segment. Entry writes and the stage's applied-segment mark commit in one
// transaction, so a segment is never applied twice.
func (s *StageService) ApplyFinalsSegment(ctx context.Context, stageKey, segment, actor string) (SegmentResult, error) {
	return withTelemetry(s, ctx, "ApplyFinalsSegment", stageKey, func(ctx context.Context) (SegmentResult, error) {
		st, failure, err := s.loadFinals(ctx, stageKey)
		if err != nil {
			return SegmentResult{}, err
		}
		if failure != nil {
			return results.FailureResult[*SegmentOutcome, error](failure), nil
		}
		if !stagedomain.HasSegment(st.Segments, segment) {
			return results.FailureResult[*SegmentOutcome, error](fmt.Errorf("%w: %q", ErrUnknownSegment, segment)), nil
		}

		expected := st.Version
		var outcome *SegmentOutcome
		err = s.runner.Run(ctx, "ApplyFinalsSegment", func(ctx context.Context, tx bun.IDB) error {
			v, err := versioned.ApplyUpdate(ctx, tx, s.stages, stageKey, expected, func(cur *stagedb.Stage) error {
				if cur.Completed {
					return ErrStageCompleted
				}
				if cur.SegmentApplied(segment) {
					return fmt.Errorf("%w: %s", ErrSegmentAlreadyApplied, segment)
				}

				entries, err := s.repo.ListByStage(ctx, tx, stageKey)
				if err != nil {
					return err
				}
				times := segmentTimes(entries, segment)
				res, err := s.engine.ApplySegment(competitors(entries), times)
				if err != nil {
					return err
				}
				if err := s.writeCompetitors(ctx, tx, entries, res.Competitors); err != nil {
					return err
				}

				status := s.engine.Status(res.Competitors)
				cur.AppliedSegments = append(cur.AppliedSegments, segment)
				settle(cur, status)

				outcome = &SegmentOutcome{
					StageKey:   stageKey,
					Segment:    segment,
					Slowest:    res.Slowest,
					LostLife:   parseEntryIDs(res.LostLife),
					Eliminated: parseEntryIDs(res.Eliminated),
					Active:     status.Active,
					Completed:  cur.Completed,
					Champion:   cur.ChampionEntryID,
				}
				return nil
			})
			if err != nil {
				if errors.Is(err, versioned.ErrVersionConflict) && v != versioned.NotFoundVersion {
					expected = v
				}
				return err
			}
			outcome.StageVersion = v
			return nil
		})
		if err != nil {
			if isFinalsFailure(err) {
				return results.FailureResult[*SegmentOutcome, error](err), nil
			}
			return SegmentResult{}, fmt.Errorf("failed to apply segment: %w", err)
		}

		s.appendAudit(ctx, audit.Event{
			Kind:       audit.KindSegmentApplied,
			EntityType: "stage",
			EntityID:   stageKey,
			Actor:      actor,
			Version:    outcome.StageVersion,
			Detail: map[string]any{
				"segment":    segment,
				"slowest":    stagedomain.FormatSegmentTime(outcome.Slowest),
				"lost_life":  outcome.LostLife,
				"eliminated": outcome.Eliminated,
			},
		})
		for _, id := range outcome.Eliminated {
			s.appendAudit(ctx, audit.Event{
				Kind:       audit.KindEntryEliminated,
				EntityType: "stage_entry",
				EntityID:   id.String(),
				Actor:      actor,
				Version:    outcome.StageVersion,
				Detail:     map[string]any{"stage_key": stageKey, "segment": segment, "manual": false},
			})
		}
		s.auditChampion(ctx, stageKey, actor, outcome.StageVersion, outcome.Champion)

		s.logger.InfoContext(ctx, "Finals segment applied",
			slog.String("stage_key", stageKey),
			slog.String("segment", segment),
			slog.Int("lost_life", len(outcome.LostLife)),
			slog.Int("eliminated", len(outcome.Eliminated)),
			slog.Int("active", outcome.Active),
			slog.Bool("completed", outcome.Completed),
		)
		return results.SuccessResult[*SegmentOutcome, error](outcome), nil
	})
}

// ResetLives restores active competitors to the starting lives. A reset that
// would change nothing writes nothing and leaves every version alone.
func (s *StageService) ResetLives(ctx context.Context, stageKey, actor string) (ResetResult, error) {
	return withTelemetry(s, ctx, "ResetLives", stageKey, func(ctx context.Context) (ResetResult, error) {
		st, failure, err := s.loadFinals(ctx, stageKey)
		if err != nil {
			return ResetResult{}, err
		}
		if failure != nil {
			return results.FailureResult[*ResetOutcome, error](failure), nil
		}

		expected := st.Version
		var outcome *ResetOutcome
		err = s.runner.Run(ctx, "ResetLives", func(ctx context.Context, tx bun.IDB) error {
			outcome = &ResetOutcome{StageKey: stageKey, Restored: []uuid.UUID{}}
			v, err := versioned.ApplyUpdate(ctx, tx, s.stages, stageKey, expected, func(cur *stagedb.Stage) error {
				entries, err := s.repo.ListByStage(ctx, tx, stageKey)
				if err != nil {
					return err
				}
				next, changed, err := s.engine.ResetLives(competitors(entries))
				if err != nil {
					return err
				}
				outcome.Active = s.engine.Status(next).Active
				if len(changed) == 0 {
					return errNoChange
				}
				if err := s.writeCompetitors(ctx, tx, entries, next); err != nil {
					return err
				}
				outcome.Restored = parseEntryIDs(changed)
				cur.Resets++
				return nil
			})
			outcome.StageVersion = v
			if errors.Is(err, errNoChange) {
				return nil
			}
			if err != nil && errors.Is(err, versioned.ErrVersionConflict) && v != versioned.NotFoundVersion {
				expected = v
			}
			return err
		})
		if err != nil {
			if isFinalsFailure(err) {
				return results.FailureResult[*ResetOutcome, error](err), nil
			}
			return ResetResult{}, fmt.Errorf("failed to reset lives: %w", err)
		}

		if len(outcome.Restored) > 0 {
			s.appendAudit(ctx, audit.Event{
				Kind:       audit.KindLivesReset,
				EntityType: "stage",
				EntityID:   stageKey,
				Actor:      actor,
				Version:    outcome.StageVersion,
				Detail:     map[string]any{"restored": outcome.Restored, "active": outcome.Active},
			})
		}
		return results.SuccessResult[*ResetOutcome, error](outcome), nil
	})
}

// EliminateEntry removes one finals competitor regardless of lives. When that
// leaves at most one competitor the stage completes in the same transaction.
func (s *StageService) EliminateEntry(ctx context.Context, req EliminateRequest) (EliminateResult, error) {
	return withTelemetry(s, ctx, "EliminateEntry", req.StageKey, func(ctx context.Context) (EliminateResult, error) {
		_, failure, err := s.loadFinals(ctx, req.StageKey)
		if err != nil {
			return EliminateResult{}, err
		}
		if failure != nil {
			return results.FailureResult[*EliminateOutcome, error](failure), nil
		}

		entry, err := s.repo.ReadEntry(ctx, nil, req.EntryID)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*EliminateOutcome, error](err), nil
			}
			return EliminateResult{}, fmt.Errorf("failed to load entry: %w", err)
		}
		if entry.StageKey != req.StageKey {
			return results.FailureResult[*EliminateOutcome, error](ErrUnknownEntry), nil
		}

		pinned := req.ExpectedVersion != nil
		expected := entry.Version
		if pinned {
			expected = *req.ExpectedVersion
		}

		var outcome *EliminateOutcome
		err = s.runner.Run(ctx, "EliminateEntry", func(ctx context.Context, tx bun.IDB) error {
			var status stagedomain.Status
			v, err := versioned.ApplyUpdate(ctx, tx, s.entries, req.EntryID, expected, func(e *stagedb.StageEntry) error {
				entries, err := s.repo.ListByStage(ctx, tx, req.StageKey)
				if err != nil {
					return err
				}
				next, err := s.engine.Eliminate(competitors(entries), e.ID.String())
				if err != nil {
					return err
				}
				status = s.engine.Status(next)
				e.Eliminated = true
				e.ManualElimination = true
				return nil
			})
			if err != nil {
				if current, ok := versioned.CurrentVersion(err); ok && !pinned {
					expected = current
				}
				return err
			}

			outcome = &EliminateOutcome{
				StageKey: req.StageKey,
				EntryID:  req.EntryID,
				Version:  v,
				Active:   status.Active,
			}
			if !status.Complete {
				return nil
			}

			st, err := s.repo.ReadStage(ctx, tx, req.StageKey)
			if err != nil {
				return err
			}
			if st.Completed {
				return ErrStageCompleted
			}
			settle(st, status)
			if _, err := s.repo.WriteStageIfVersion(ctx, tx, st.Key, st.Version, st); err != nil {
				return err
			}
			outcome.Completed = true
			outcome.Champion = st.ChampionEntryID
			return nil
		})
		if err != nil {
			if isFinalsFailure(err) {
				return results.FailureResult[*EliminateOutcome, error](err), nil
			}
			return EliminateResult{}, fmt.Errorf("failed to eliminate entry: %w", err)
		}

		s.appendAudit(ctx, audit.Event{
			Kind:       audit.KindEntryEliminated,
			EntityType: "stage_entry",
			EntityID:   req.EntryID.String(),
			Actor:      req.Actor,
			Version:    outcome.Version,
			Detail:     map[string]any{"stage_key": req.StageKey, "manual": true},
		})
		s.auditChampion(ctx, req.StageKey, req.Actor, outcome.Version, outcome.Champion)

		return results.SuccessResult[*EliminateOutcome, error](outcome), nil
	})
}

// loadFinals reads a stage that must run the lives engine and still be open.
// A non-nil failure is a domain rejection; err is infrastructure.
func (s *StageService) loadFinals(ctx context.Context, stageKey string) (*stagedb.Stage, error, error) {
	st, err := s.repo.ReadStage(ctx, nil, stageKey)
	if err != nil {
		if errors.Is(err, versioned.ErrNotFound) {
			return nil, err, nil
		}
		return nil, nil, fmt.Errorf("failed to load stage: %w", err)
	}
	if !st.Kind.UsesLives() {
		return nil, ErrNotFinals, nil
	}
	if st.Completed {
		return nil, ErrStageCompleted, nil
	}
	return st, nil, nil
}

// writeCompetitors persists the entries whose lives or elimination moved.
// next is index-aligned with entries.
func (s *StageService) writeCompetitors(ctx context.Context, tx bun.IDB, entries []*stagedb.StageEntry, next []stagedomain.Competitor) error {
	for i, e := range entries {
		c := next[i]
		if c.Lives == e.Lives && c.Eliminated == e.Eliminated {
			continue
		}
		expected := e.Version
		e.Lives = c.Lives
		e.Eliminated = c.Eliminated
		if _, err := s.repo.WriteEntryIfVersion(ctx, tx, e.ID, expected, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *StageService) auditChampion(ctx context.Context, stageKey, actor string, version int64, champion *uuid.UUID) {
	if champion == nil {
		return
	}
	s.appendAudit(ctx, audit.Event{
		Kind:       audit.KindChampionDeclared,
		EntityType: "stage",
		EntityID:   stageKey,
		Actor:      actor,
		Version:    version,
		Detail:     map[string]any{"champion_entry_id": champion.String()},
	})
}

// settle marks the stage complete once the finals status says so.
func settle(st *stagedb.Stage, status stagedomain.Status) {
	if !status.Complete {
		return
	}
	st.Completed = true
	if id, err := uuid.Parse(status.Champion); err == nil {
		st.ChampionEntryID = &id
	}
}

// segmentTimes collects each entry's valid time for one segment, keyed by entry ID.
func segmentTimes(entries []*stagedb.StageEntry, segment string) map[string]time.Duration {
	out := make(map[string]time.Duration, len(entries))
	for _, e := range entries {
		if t, ok := stagedomain.ValidTimes(e.Times, []string{segment})[segment]; ok {
			out[e.ID.String()] = t
		}
	}
	return out
}

func isFinalsFailure(err error) bool {
	return errors.Is(err, stagedomain.ErrValidation) ||
		errors.Is(err, ErrNotFinals) ||
		errors.Is(err, ErrSegmentAlreadyApplied) ||
		errors.Is(err, ErrSegmentIncomplete) ||
		errors.Is(err, ErrResetNotAllowed) ||
		errors.Is(err, ErrEntryEliminated) ||
		errors.Is(err, ErrStageCompleted) ||
		errors.Is(err, versioned.ErrNotFound) ||
		errors.Is(err, versioned.ErrVersionConflict)
}
