package stageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	stagedb "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/uptrace/bun"
)

// SubmitSegmentTime records one raw time. The stored value is the normalized
// m:ss.fff form, so an identical resubmission does not bump the version.
func (s *StageService) SubmitSegmentTime(ctx context.Context, req SubmitTimeRequest) (TimeResult, error) {
	return withTelemetry(s, ctx, "SubmitSegmentTime", req.StageKey, func(ctx context.Context) (TimeResult, error) {
		d, err := stagedomain.ParseSegmentTime(req.Raw)
		if err != nil {
			return results.FailureResult[*TimeOutcome, error](err), nil
		}
		normalized := stagedomain.FormatSegmentTime(d)

		st, err := s.repo.ReadStage(ctx, nil, req.StageKey)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*TimeOutcome, error](err), nil
			}
			return TimeResult{}, fmt.Errorf("failed to load stage: %w", err)
		}
		if err := checkTimeEntry(st, req.Segment); err != nil {
			return results.FailureResult[*TimeOutcome, error](err), nil
		}

		entry, err := s.repo.ReadEntry(ctx, nil, req.EntryID)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*TimeOutcome, error](err), nil
			}
			return TimeResult{}, fmt.Errorf("failed to load entry: %w", err)
		}
		if entry.StageKey != st.Key {
			return results.FailureResult[*TimeOutcome, error](ErrUnknownEntry), nil
		}

		pinned := req.ExpectedVersion != nil
		expected := entry.Version
		if pinned {
			expected = *req.ExpectedVersion
		}

		var (
			version int64
			changed bool
		)
		err = s.runner.Run(ctx, "SubmitSegmentTime", func(ctx context.Context, tx bun.IDB) error {
			v, err := versioned.ApplyUpdate(ctx, tx, s.entries, req.EntryID, expected, func(e *stagedb.StageEntry) error {
				return setTimes(st, e, map[string]string{req.Segment: normalized})
			})
			version = v
			if errors.Is(err, errNoChange) {
				changed = false
				return nil
			}
			if err != nil {
				if current, ok := versioned.CurrentVersion(err); ok && !pinned {
					expected = current
				}
				return err
			}
			changed = true
			return nil
		})
		if err != nil {
			if isTimeFailure(err) {
				return results.FailureResult[*TimeOutcome, error](err), nil
			}
			return TimeResult{}, fmt.Errorf("failed to persist segment time: %w", err)
		}

		outcome := &TimeOutcome{
			StageKey: st.Key,
			EntryID:  req.EntryID,
			Segment:  req.Segment,
			Time:     d,
			Version:  version,
			Changed:  changed,
		}

		if changed {
			s.appendAudit(ctx, audit.Event{
				Kind:       audit.KindSegmentRecorded,
				EntityType: "stage_entry",
				EntityID:   req.EntryID.String(),
				Actor:      req.SubmittedBy,
				Version:    version,
				Detail:     map[string]any{"stage_key": st.Key, "segment": req.Segment, "time": normalized},
			})
			outcome.Recalculated = s.afterTimesChanged(ctx, st.Key)
		}

		return results.SuccessResult[*TimeOutcome, error](outcome), nil
	})
}

// ImportSegmentTimes applies an uploaded time sheet. Each row is committed on
// its own through the runner with fresh reads, so a concurrent single-time
// edit never blocks the import. Bad cells and unknown competitors are
// reported back instead of failing the whole sheet.
func (s *StageService) ImportSegmentTimes(ctx context.Context, req ImportRequest) (ImportResult, error) {
	return withTelemetry(s, ctx, "ImportSegmentTimes", req.StageKey, func(ctx context.Context) (ImportResult, error) {
		parser, err := s.parsers.GetParser(req.Filename)
		if err != nil {
			return results.FailureResult[*ImportOutcome, error](fmt.Errorf("%w: %w", ErrValidation, err)), nil
		}
		sheet, err := parser.Parse(req.Data)
		if err != nil {
			return results.FailureResult[*ImportOutcome, error](fmt.Errorf("%w: %w", ErrValidation, err)), nil
		}

		st, err := s.repo.ReadStage(ctx, nil, req.StageKey)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*ImportOutcome, error](err), nil
			}
			return ImportResult{}, fmt.Errorf("failed to load stage: %w", err)
		}
		if st.Completed {
			return results.FailureResult[*ImportOutcome, error](ErrStageCompleted), nil
		}
		var unknown []string
		for _, seg := range sheet.Segments {
			if !stagedomain.HasSegment(st.Segments, seg) {
				unknown = append(unknown, seg)
			}
		}
		if len(unknown) > 0 {
			return results.FailureResult[*ImportOutcome, error](
				fmt.Errorf("%w: %s", ErrUnknownSegment, strings.Join(unknown, ", ")),
			), nil
		}

		outcome := &ImportOutcome{StageKey: st.Key, Rejected: []ImportRejection{}}
		for _, row := range sheet.Rows {
			if err := ctx.Err(); err != nil {
				return ImportResult{}, err
			}
			if err := s.importRow(ctx, st, row.Line, row.CompetitorID, row.Times, req.SubmittedBy, outcome); err != nil {
				return ImportResult{}, err
			}
		}

		s.logger.InfoContext(ctx, "Time sheet imported",
			slog.String("stage_key", st.Key),
			slog.String("filename", req.Filename),
			slog.Int("applied", outcome.Applied),
			slog.Int("unchanged", outcome.Unchanged),
			slog.Int("rejected", len(outcome.Rejected)),
		)

		if outcome.Applied > 0 {
			outcome.Recalculated = s.afterTimesChanged(ctx, st.Key)
		}
		return results.SuccessResult[*ImportOutcome, error](outcome), nil
	})
}

// importRow applies one sheet row. Only infrastructure errors are returned;
// everything else becomes a rejection on outcome.
func (s *StageService) importRow(
	ctx context.Context,
	st *stagedb.Stage,
	line int,
	competitorID string,
	cells map[string]string,
	actor string,
	outcome *ImportOutcome,
) error {
	reject := func(segment string, reason error) {
		outcome.Rejected = append(outcome.Rejected, ImportRejection{
			Line:         line,
			CompetitorID: competitorID,
			Segment:      segment,
			Reason:       reason.Error(),
		})
	}

	entry, err := s.repo.FindEntryByCompetitor(ctx, nil, st.Key, competitorID)
	if err != nil {
		if errors.Is(err, versioned.ErrNotFound) {
			reject("", ErrUnknownEntry)
			return nil
		}
		return fmt.Errorf("failed to find entry for %s: %w", competitorID, err)
	}

	segments := make([]string, 0, len(cells))
	for seg := range cells {
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	valid := make(map[string]string, len(cells))
	for _, seg := range segments {
		if err := checkTimeEntry(st, seg); err != nil {
			reject(seg, err)
			continue
		}
		d, err := stagedomain.ParseSegmentTime(cells[seg])
		if err != nil {
			reject(seg, err)
			continue
		}
		valid[seg] = stagedomain.FormatSegmentTime(d)
	}
	if len(valid) == 0 {
		return nil
	}

	version, err := versioned.Update(ctx, s.runner, "ImportSegmentTimes", s.entries, entry.ID, entry.Version, func(e *stagedb.StageEntry) error {
		return setTimes(st, e, valid)
	})
	switch {
	case errors.Is(err, errNoChange):
		outcome.Unchanged++
		return nil
	case err != nil && isTimeFailure(err):
		reject("", err)
		return nil
	case err != nil:
		return fmt.Errorf("failed to persist times for %s: %w", competitorID, err)
	}

	outcome.Applied++
	s.appendAudit(ctx, audit.Event{
		Kind:       audit.KindSegmentRecorded,
		EntityType: "stage_entry",
		EntityID:   entry.ID.String(),
		Actor:      actor,
		Version:    version,
		Detail:     map[string]any{"stage_key": st.Key, "times": valid, "source": "import"},
	})
	return nil
}

// checkTimeEntry rejects a time for a segment the stage cannot take.
func checkTimeEntry(st *stagedb.Stage, segment string) error {
	if !stagedomain.HasSegment(st.Segments, segment) {
		return fmt.Errorf("%w: %q", ErrUnknownSegment, segment)
	}
	if st.Kind.UsesLives() {
		if st.Completed {
			return ErrStageCompleted
		}
		if st.SegmentApplied(segment) {
			return fmt.Errorf("%w: %s", ErrSegmentAlreadyApplied, segment)
		}
	}
	return nil
}

// setTimes writes normalized times onto e, returning errNoChange when every
// value is already stored.
func setTimes(st *stagedb.Stage, e *stagedb.StageEntry, times map[string]string) error {
	if e.StageKey != st.Key {
		return ErrUnknownEntry
	}
	if st.Kind.UsesLives() && e.Eliminated {
		return ErrEntryEliminated
	}
	if e.Times == nil {
		e.Times = map[string]string{}
	}
	changed := false
	for seg, t := range times {
		if e.Times[seg] == t {
			continue
		}
		e.Times[seg] = t
		changed = true
	}
	if !changed {
		return errNoChange
	}
	return nil
}

func isTimeFailure(err error) bool {
	return errors.Is(err, stagedomain.ErrValidation) ||
		errors.Is(err, ErrEntryEliminated) ||
		errors.Is(err, ErrStageCompleted) ||
		errors.Is(err, ErrSegmentAlreadyApplied) ||
		errors.Is(err, versioned.ErrNotFound) ||
		errors.Is(err, versioned.ErrVersionConflict)
}

// afterTimesChanged schedules a recalculation, or runs one inline when no
// queue is configured or the enqueue fails. Recalculation errors are logged:
// the time itself is already committed. It reports whether an inline pass
// committed new derived values.
func (s *StageService) afterTimesChanged(ctx context.Context, stageKey string) bool {
	if s.scheduler != nil {
		err := s.scheduler.EnqueueRecalculation(ctx, stageKey)
		if err == nil {
			return false
		}
		s.logger.WarnContext(ctx, "Failed to enqueue recalculation, recalculating inline",
			slog.String("stage_key", stageKey),
			observability.ExtractCorrelationID(ctx),
			observability.Error(err),
		)
	}

	o, err := s.recalculate(ctx, stageKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "Inline recalculation failed",
			slog.String("stage_key", stageKey),
			observability.ExtractCorrelationID(ctx),
			observability.Error(err),
		)
		return false
	}
	return o.Updated > 0
}
