package matchservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	matchdb "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/results"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateMatch registers a new head-to-head pairing.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (MatchResult, error) {
	side1 := strings.TrimSpace(req.Side1UserID)
	side2 := strings.TrimSpace(req.Side2UserID)

	return withTelemetry(s, ctx, "CreateMatch", "new", func(ctx context.Context) (MatchResult, error) {
		if side1 == "" || side2 == "" || side1 == side2 {
			return results.FailureResult[*MatchView, error](ErrInvalidParties), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (MatchResult, error) {
			m := &matchdb.Match{
				ID:          uuid.New(),
				StageKey:    strings.TrimSpace(req.StageKey),
				Side1UserID: side1,
				Side2UserID: side2,
			}
			if err := s.repo.Create(ctx, db, m); err != nil {
				return MatchResult{}, err
			}
			return results.SuccessResult[*MatchView, error](toView(m)), nil
		})
	})
}

// GetMatch retrieves a match and its reconciliation state.
func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (MatchResult, error) {
	m, err := s.repo.Read(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, versioned.ErrNotFound) {
			return results.FailureResult[*MatchView, error](err), nil
		}
		return MatchResult{}, fmt.Errorf("failed to get match: %w", err)
	}
	return results.SuccessResult[*MatchView, error](toView(m)), nil
}

// LinkAccount records that linkedUserID may report on behalf of primaryUserID.
func (s *MatchService) LinkAccount(ctx context.Context, primaryUserID, linkedUserID string) (LinkResult, error) {
	primary := strings.TrimSpace(primaryUserID)
	linked := strings.TrimSpace(linkedUserID)

	return withTelemetry(s, ctx, "LinkAccount", primary, func(ctx context.Context) (LinkResult, error) {
		if primary == "" || linked == "" || primary == linked {
			return results.FailureResult[*LinkOutcome, error](fmt.Errorf("%w: cannot link %q to %q", ErrValidation, linked, primary)), nil
		}
		if err := s.repo.LinkAccount(ctx, nil, primary, linked); err != nil {
			return LinkResult{}, err
		}
		return results.SuccessResult[*LinkOutcome, error](&LinkOutcome{
			PrimaryUserID: primary,
			LinkedUserID:  linked,
		}), nil
	})
}
