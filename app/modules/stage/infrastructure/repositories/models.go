package stagedb

import (
	"time"

	stagedomain "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Stage is a competition phase and its ranking rule.
type Stage struct {
	bun.BaseModel `bun:"table:stages,alias:s"`

	Key             string           `bun:"key,pk"`
	Kind            stagedomain.Kind `bun:"kind,notnull"`
	Segments        []string         `bun:"segments,type:jsonb,notnull"`
	AppliedSegments []string         `bun:"applied_segments,type:jsonb,notnull"`
	Resets          int              `bun:"resets,notnull,default:0"`
	Completed       bool             `bun:"completed,notnull,default:false"`
	ChampionEntryID *uuid.UUID       `bun:"champion_entry_id,type:uuid,nullzero"`
	Version         int64            `bun:"version,notnull,default:0"`
	CreatedAt       time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (s *Stage) CurrentVersion() int64 { return s.Version }

// SegmentApplied reports whether the finals segment has already been applied.
func (s *Stage) SegmentApplied(segment string) bool {
	return stagedomain.HasSegment(s.AppliedSegments, segment)
}

// StageEntry is one competitor's run through a stage. Times holds the raw
// per-segment input; TotalMs, Score and Rank are derived and rewritten on
// every recalculation.
type StageEntry struct {
	bun.BaseModel `bun:"table:stage_entries,alias:se"`

	ID                uuid.UUID         `bun:"id,pk,type:uuid"`
	StageKey          string            `bun:"stage_key,notnull"`
	CompetitorID      string            `bun:"competitor_id,notnull"`
	Order             int               `bun:"enumeration_order,notnull"`
	Times             map[string]string `bun:"times,type:jsonb,notnull"`
	TotalMs           *int64            `bun:"total_time_ms"`
	Score             *int              `bun:"score"`
	Rank              *int              `bun:"rank"`
	Lives             int               `bun:"lives,notnull,default:0"`
	Eliminated        bool              `bun:"eliminated,notnull,default:false"`
	ManualElimination bool              `bun:"manual_elimination,notnull,default:false"`
	Version           int64             `bun:"version,notnull,default:0"`
	CreatedAt         time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (e *StageEntry) CurrentVersion() int64 { return e.Version }

// Total returns the derived total time, if defined.
func (e *StageEntry) Total() (time.Duration, bool) {
	if e.TotalMs == nil {
		return 0, false
	}
	return time.Duration(*e.TotalMs) * time.Millisecond, true
}

// Competitor projects the entry for the lives engine.
func (e *StageEntry) Competitor() stagedomain.Competitor {
	return stagedomain.Competitor{EntryID: e.ID.String(), Lives: e.Lives, Eliminated: e.Eliminated}
}

// SameInputs reports whether other carries the same raw times as e. Derived
// fields depend on nothing else.
func (e *StageEntry) SameInputs(other *StageEntry) bool {
	if len(e.Times) != len(other.Times) {
		return false
	}
	for k, v := range e.Times {
		if ov, ok := other.Times[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
