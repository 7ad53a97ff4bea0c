package stagedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/tourney-scoring/app/shared/versioned"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new stage repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// CreateStage inserts a new stage at version 0.
func (r *Impl) CreateStage(ctx context.Context, db bun.IDB, stage *Stage) error {
	db = r.resolveDB(db)
	stage.Version = 0
	if stage.AppliedSegments == nil {
		stage.AppliedSegments = []string{}
	}
	if _, err := db.NewInsert().Model(stage).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create stage: %w", err)
	}
	return nil
}

// ReadStage retrieves a stage by key.
func (r *Impl) ReadStage(ctx context.Context, db bun.IDB, key string) (*Stage, error) {
	db = r.resolveDB(db)
	stage := new(Stage)
	err := db.NewSelect().
		Model(stage).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return stage, nil
}

// WriteStageIfVersion persists the mutable stage columns if the stored version
// still equals expected.
func (r *Impl) WriteStageIfVersion(ctx context.Context, db bun.IDB, key string, expected int64, stage *Stage) (int64, error) {
	db = r.resolveDB(db)

	prev := stage.Version
	stage.Version = expected + 1
	stage.UpdatedAt = time.Now().UTC()

	res, err := db.NewUpdate().
		Model(stage).
		Column("applied_segments", "resets", "completed", "champion_entry_id", "version", "updated_at").
		Where("key = ?", key).
		Where("version = ?", expected).
		Exec(ctx)
	rows, err := affected(res, err)
	if err != nil {
		stage.Version = prev
		return versioned.NotFoundVersion, fmt.Errorf("failed to update stage: %w", err)
	}
	if rows == 1 {
		return stage.Version, nil
	}

	stage.Version = prev
	current, err := r.ReadStage(ctx, db, key)
	if err != nil {
		return versioned.NotFoundVersion, err
	}
	return current.Version, &versioned.ConflictError{Expected: expected, Current: current.Version}
}

// ReadEntry retrieves a stage entry by ID.
func (r *Impl) ReadEntry(ctx context.Context, db bun.IDB, id uuid.UUID) (*StageEntry, error) {
	db = r.resolveDB(db)
	entry := new(StageEntry)
	err := db.NewSelect().
		Model(entry).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get stage entry: %w", err)
	}
	return entry, nil
}

// WriteEntryIfVersion persists an entry's inputs and derived fields if the
// stored version still equals expected.
func (r *Impl) WriteEntryIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, entry *StageEntry) (int64, error) {
	db = r.resolveDB(db)

	prev := entry.Version
	entry.Version = expected + 1
	entry.UpdatedAt = time.Now().UTC()

	res, err := db.NewUpdate().
		Model(entry).
		Column("times", "total_time_ms", "score", "rank", "lives", "eliminated", "manual_elimination", "version", "updated_at").
		Where("id = ?", id).
		Where("version = ?", expected).
		Exec(ctx)
	rows, err := affected(res, err)
	if err != nil {
		entry.Version = prev
		return versioned.NotFoundVersion, fmt.Errorf("failed to update stage entry: %w", err)
	}
	if rows == 1 {
		return entry.Version, nil
	}

	entry.Version = prev
	current, err := r.ReadEntry(ctx, db, id)
	if err != nil {
		return versioned.NotFoundVersion, err
	}
	return current.Version, &versioned.ConflictError{Expected: expected, Current: current.Version}
}

// ListByStage returns every entry of a stage in enumeration order.
func (r *Impl) ListByStage(ctx context.Context, db bun.IDB, stageKey string) ([]*StageEntry, error) {
	db = r.resolveDB(db)
	var entries []*StageEntry
	err := db.NewSelect().
		Model(&entries).
		Where("stage_key = ?", stageKey).
		Order("enumeration_order ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage entries: %w", err)
	}
	return entries, nil
}

// InsertEntries bulk-inserts new entries at version 0.
func (r *Impl) InsertEntries(ctx context.Context, db bun.IDB, entries []*StageEntry) error {
	if len(entries) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Times == nil {
			e.Times = map[string]string{}
		}
		e.Version = 0
	}
	if _, err := db.NewInsert().Model(&entries).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert stage entries: %w", err)
	}
	return nil
}

// FindEntryByCompetitor retrieves the entry of competitorID in a stage.
func (r *Impl) FindEntryByCompetitor(ctx context.Context, db bun.IDB, stageKey, competitorID string) (*StageEntry, error) {
	db = r.resolveDB(db)
	entry := new(StageEntry)
	err := db.NewSelect().
		Model(entry).
		Where("stage_key = ?", stageKey).
		Where("competitor_id = ?", competitorID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find stage entry: %w", err)
	}
	return entry, nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
