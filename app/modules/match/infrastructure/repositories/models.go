package matchdb

import (
	"time"

	matchdomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Match is a head-to-head pairing and its reconciliation state.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID          uuid.UUID           `bun:"id,pk,type:uuid"`
	StageKey    string              `bun:"stage_key,nullzero"`
	Side1UserID string              `bun:"side1_user_id,notnull"`
	Side2UserID string              `bun:"side2_user_id,notnull"`
	Side1Report *matchdomain.Report `bun:"side1_report,type:jsonb,nullzero"`
	Side2Report *matchdomain.Report `bun:"side2_report,type:jsonb,nullzero"`
	Canonical   matchdomain.Values  `bun:"canonical_result,type:jsonb,nullzero"`
	Completed   bool                `bun:"completed,notnull,default:false"`
	Version     int64               `bun:"version,notnull,default:0"`
	CreatedAt   time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (m *Match) CurrentVersion() int64 { return m.Version }

// Snapshot extracts the reconciliation state.
func (m *Match) Snapshot() matchdomain.Snapshot {
	return matchdomain.Snapshot{
		Side1:     m.Side1Report,
		Side2:     m.Side2Report,
		Completed: m.Completed,
		Canonical: m.Canonical,
	}
}

// Apply copies a reconciled snapshot back onto the row.
func (m *Match) Apply(s matchdomain.Snapshot) {
	m.Side1Report = s.Side1
	m.Side2Report = s.Side2
	m.Completed = s.Completed
	m.Canonical = s.Canonical
}

// MatchReport is one accepted submission. Earlier submissions of the same side are superseded, never deleted.
type MatchReport struct {
	bun.BaseModel `bun:"table:match_reports,alias:mr"`

	ID           uuid.UUID          `bun:"id,pk,type:uuid"`
	MatchID      uuid.UUID          `bun:"match_id,type:uuid,notnull"`
	Side         matchdomain.Side   `bun:"side,notnull"`
	Values       matchdomain.Values `bun:"report_values,type:jsonb,notnull"`
	SubmittedBy  string             `bun:"submitted_by,notnull"`
	SubmittedAt  time.Time          `bun:"submitted_at,notnull"`
	MatchVersion int64              `bun:"match_version,notnull"`
	Superseded   bool               `bun:"superseded,notnull,default:false"`
}

// MatchLink lets LinkedUserID report on behalf of PrimaryUserID.
type MatchLink struct {
	bun.BaseModel `bun:"table:match_links,alias:ml"`

	PrimaryUserID string    `bun:"primary_user_id,pk"`
	LinkedUserID  string    `bun:"linked_user_id,pk"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
