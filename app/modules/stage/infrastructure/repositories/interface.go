package stagedb

import (
	"context"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for stage persistence.
type Repository interface {
	CreateStage(ctx context.Context, db bun.IDB, stage *Stage) error
	ReadStage(ctx context.Context, db bun.IDB, key string) (*Stage, error)
	WriteStageIfVersion(ctx context.Context, db bun.IDB, key string, expected int64, stage *Stage) (int64, error)

	ReadEntry(ctx context.Context, db bun.IDB, id uuid.UUID) (*StageEntry, error)
	WriteEntryIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, entry *StageEntry) (int64, error)

	// ListByStage returns the stage's entries in enumeration order.
	ListByStage(ctx context.Context, db bun.IDB, stageKey string) ([]*StageEntry, error)

	// InsertEntries writes new entries. It is not atomic across entries unless db is a transaction.
	InsertEntries(ctx context.Context, db bun.IDB, entries []*StageEntry) error

	// FindEntryByCompetitor looks an entry up by its competitor within a stage.
	FindEntryByCompetitor(ctx context.Context, db bun.IDB, stageKey, competitorID string) (*StageEntry, error)
}

// StageStore adapts repo to the versioned update primitive for stages.
func StageStore(repo Repository) versioned.Store[string, *Stage] {
	return stageStore{repo: repo}
}

// EntryStore adapts repo to the versioned update primitive for stage entries.
func EntryStore(repo Repository) versioned.Store[uuid.UUID, *StageEntry] {
	return entryStore{repo: repo}
}

type stageStore struct{ repo Repository }

func (s stageStore) Read(ctx context.Context, db bun.IDB, key string) (*Stage, error) {
	return s.repo.ReadStage(ctx, db, key)
}

func (s stageStore) WriteIfVersion(ctx context.Context, db bun.IDB, key string, expected int64, stage *Stage) (int64, error) {
	return s.repo.WriteStageIfVersion(ctx, db, key, expected, stage)
}

type entryStore struct{ repo Repository }

func (s entryStore) Read(ctx context.Context, db bun.IDB, id uuid.UUID) (*StageEntry, error) {
	return s.repo.ReadEntry(ctx, db, id)
}

func (s entryStore) WriteIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, entry *StageEntry) (int64, error) {
	return s.repo.WriteEntryIfVersion(ctx, db, id, expected, entry)
}
