package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	matchidentity "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/identity"
	matchdb "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/audit"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/uptrace/bun"
)

// SubmitReport validates, authorizes and reconciles one side's report.
//
// Unauthorized and malformed reports are rejected before anything is written.
// The match is updated through the retry runner; when the caller did not pin a
// version, each retry is made against the version that won the race.
func (s *MatchService) SubmitReport(ctx context.Context, req SubmitReportRequest) (ReportResult, error) {
	return withTelemetry(s, ctx, "SubmitReport", req.MatchID.String(), func(ctx context.Context) (ReportResult, error) {
		if err := matchdomain.ValidateValues(req.Values); err != nil {
			return results.FailureResult[*ReportOutcome, error](err), nil
		}
		if req.Side != matchdomain.SideNone && !req.Side.Valid() {
			return results.FailureResult[*ReportOutcome, error](matchdomain.ErrInvalidSide), nil
		}

		match, err := s.repo.Read(ctx, nil, req.MatchID)
		if err != nil {
			if errors.Is(err, versioned.ErrNotFound) {
				return results.FailureResult[*ReportOutcome, error](err), nil
			}
			return ReportResult{}, fmt.Errorf("failed to load match: %w", err)
		}

		side, err := s.authorize(ctx, req, match)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSideRequired) {
				return results.FailureResult[*ReportOutcome, error](err), nil
			}
			return ReportResult{}, err
		}

		report := matchdomain.Report{
			Side:        side,
			Values:      req.Values.Clone(),
			SubmittedBy: req.Submitter.UserID,
			SubmittedAt: s.now().UTC(),
		}

		pinned := req.ExpectedVersion != nil
		expected := match.Version
		if pinned {
			expected = *req.ExpectedVersion
		}

		var (
			decision matchdomain.Decision
			version  int64
		)
		err = s.runner.Run(ctx, "SubmitReport", func(ctx context.Context, tx bun.IDB) error {
			v, err := versioned.ApplyUpdate(ctx, tx, s.repo, req.MatchID, expected, func(m *matchdb.Match) error {
				d, err := matchdomain.Reconcile(m.Snapshot(), report)
				if err != nil {
					return err
				}
				decision = d
				if !d.Changed {
					return errNoChange
				}
				m.Apply(d.Next)
				return nil
			})
			version = v
			if errors.Is(err, errNoChange) {
				return nil
			}
			if err != nil {
				if current, ok := versioned.CurrentVersion(err); ok && !pinned {
					expected = current
				}
				return err
			}

			return s.repo.InsertReport(ctx, tx, &matchdb.MatchReport{
				MatchID:      req.MatchID,
				Side:         report.Side,
				Values:       report.Values,
				SubmittedBy:  report.SubmittedBy,
				SubmittedAt:  report.SubmittedAt,
				MatchVersion: v,
			})
		})
		if err != nil {
			if isReportFailure(err) {
				return results.FailureResult[*ReportOutcome, error](err), nil
			}
			return ReportResult{}, fmt.Errorf("failed to persist report: %w", err)
		}

		outcome := &ReportOutcome{
			MatchID:   req.MatchID,
			Side:      side,
			Values:    report.Values,
			State:     decision.State,
			Version:   version,
			Changed:   decision.Changed,
			Canonical: decision.Next.Canonical.Clone(),
		}
		if r := decision.Next.Side1; r != nil {
			outcome.Side1Values = r.Values.Clone()
		}
		if r := decision.Next.Side2; r != nil {
			outcome.Side2Values = r.Values.Clone()
		}

		if outcome.Changed {
			s.appendAudit(ctx, outcome, report.SubmittedBy)
		}

		s.logger.InfoContext(ctx, "Report reconciled",
			slog.String("match_id", req.MatchID.String()),
			slog.String("side", side.String()),
			slog.String("state", string(outcome.State)),
			slog.Int64("version", outcome.Version),
			slog.Bool("changed", outcome.Changed),
		)

		return results.SuccessResult[*ReportOutcome, error](outcome), nil
	})
}

// authorize resolves which side the submitter reports for.
func (s *MatchService) authorize(ctx context.Context, req SubmitReportRequest, match *matchdb.Match) (matchdomain.Side, error) {
	sides, err := s.resolver.Resolve(ctx, nil, req.Submitter, matchidentity.Parties{
		Side1UserID: match.Side1UserID,
		Side2UserID: match.Side2UserID,
	})
	if err != nil {
		return matchdomain.SideNone, fmt.Errorf("failed to resolve submitter: %w", err)
	}
	if sides == matchdomain.SideSetNone {
		return matchdomain.SideNone, ErrUnauthorized
	}

	side := req.Side
	if side == matchdomain.SideNone {
		side = sides.Only()
		if side == matchdomain.SideNone {
			return matchdomain.SideNone, ErrSideRequired
		}
	}
	if !sides.Allows(side) {
		return matchdomain.SideNone, ErrUnauthorized
	}
	return side, nil
}

func isReportFailure(err error) bool {
	return errors.Is(err, matchdomain.ErrValidation) ||
		errors.Is(err, matchdomain.ErrMatchCompleted) ||
		errors.Is(err, versioned.ErrNotFound) ||
		errors.Is(err, versioned.ErrVersionConflict)
}

func (s *MatchService) appendAudit(ctx context.Context, o *ReportOutcome, actor string) {
	base := audit.Event{
		EntityType: "match",
		EntityID:   o.MatchID.String(),
		Actor:      actor,
		Version:    o.Version,
	}

	submitted := base
	submitted.Kind = audit.KindReportSubmitted
	submitted.Detail = map[string]any{"side": int(o.Side), "values": o.Values}
	audit.AppendOrLog(ctx, s.audit, s.logger, submitted)

	switch o.State {
	case matchdomain.StateAgreed:
		confirmed := base
		confirmed.Kind = audit.KindMatchConfirmed
		confirmed.Detail = map[string]any{"canonical": o.Canonical}
		audit.AppendOrLog(ctx, s.audit, s.logger, confirmed)
	case matchdomain.StateDisputed:
		disputed := base
		disputed.Kind = audit.KindMatchDisputed
		disputed.Detail = map[string]any{"side1": o.Side1Values, "side2": o.Side2Values}
		audit.AppendOrLog(ctx, s.audit, s.logger, disputed)
	}
}
