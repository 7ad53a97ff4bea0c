package matchidentity

import (
	"context"
	"fmt"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	"github.com/uptrace/bun"
)

// Submitter is the authenticated caller behind a report.
type Submitter struct {
	UserID string
	Admin  bool
}

// Parties are the users assigned to each side of a match.
type Parties struct {
	Side1UserID string
	Side2UserID string
}

// LinkLookup resolves linked-account identities.
type LinkLookup interface {
	LinkedPrimaries(ctx context.Context, db bun.IDB, userID string) ([]string, error)
}

// Resolver maps a submitter onto the sides of a match they may report for.
type Resolver struct {
	links LinkLookup
}

func NewResolver(links LinkLookup) *Resolver {
	return &Resolver{links: links}
}

// Resolve returns the sides submitter may act for. Admins get both sides.
// Anyone else must map to exactly one side, directly or via a linked account;
// mapping to both sides or neither yields SideSetNone.
func (r *Resolver) Resolve(ctx context.Context, db bun.IDB, submitter Submitter, parties Parties) (matchdomain.SideSet, error) {
	if submitter.Admin {
		return matchdomain.SideSetBoth, nil
	}
	if submitter.UserID == "" {
		return matchdomain.SideSetNone, nil
	}

	set := sidesOf(submitter.UserID, parties)

	if set == matchdomain.SideSetNone && r.links != nil {
		primaries, err := r.links.LinkedPrimaries(ctx, db, submitter.UserID)
		if err != nil {
			return matchdomain.SideSetNone, fmt.Errorf("resolve linked accounts: %w", err)
		}
		for _, p := range primaries {
			set |= sidesOf(p, parties)
		}
	}

	if set.Only() == matchdomain.SideNone {
		return matchdomain.SideSetNone, nil
	}
	return set, nil
}

func sidesOf(userID string, p Parties) matchdomain.SideSet {
	set := matchdomain.SideSetNone
	if userID == p.Side1UserID {
		set |= matchdomain.SideSetOne
	}
	if userID == p.Side2UserID {
		set |= matchdomain.SideSetTwo
	}
	return set
}
