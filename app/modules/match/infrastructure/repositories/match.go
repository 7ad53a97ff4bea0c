package matchdb

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

// NewRepository creates a new match repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Read retrieves a match by ID.
func (r *Impl) Read(ctx context.Context, db bun.IDB, id uuid.UUID) (*Match, error) {
	db = r.resolveDB(db)
	match := new(Match)
	err := db.NewSelect().
		Model(match).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// WriteIfVersion persists the reconciliation columns only if the stored
// version still equals expected, bumping it by one.
func (r *Impl) WriteIfVersion(ctx context.Context, db bun.IDB, id uuid.UUID, expected int64, match *Match) (int64, error) {
	db = r.resolveDB(db)

	prev := match.Version
	match.Version = expected + 1
	match.UpdatedAt = time.Now().UTC()

	res, err := db.NewUpdate().
		Model(match).
		Column("side1_report", "side2_report", "canonical_result", "completed", "version", "updated_at").
		Where("id = ?", id).
		Where("version = ?", expected).
		Exec(ctx)
	if err != nil {
		match.Version = prev
		return versioned.NotFoundVersion, fmt.Errorf("failed to update match: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		match.Version = prev
		return versioned.NotFoundVersion, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return match.Version, nil
	}

	match.Version = prev
	current, err := r.Read(ctx, db, id)
	if err != nil {
		return versioned.NotFoundVersion, err
	}
	return current.Version, &versioned.ConflictError{Expected: expected, Current: current.Version}
}

// Create inserts a new match.
func (r *Impl) Create(ctx context.Context, db bun.IDB, match *Match) error {
	db = r.resolveDB(db)
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	match.Version = 0
	if _, err := db.NewInsert().Model(match).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// InsertReport appends a submission, superseding the side's earlier current one.
func (r *Impl) InsertReport(ctx context.Context, db bun.IDB, report *MatchReport) error {
	db = r.resolveDB(db)
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	if _, err := db.NewUpdate().
		Model((*MatchReport)(nil)).
		Set("superseded = TRUE").
		Where("match_id = ?", report.MatchID).
		Where("side = ?", report.Side).
		Where("superseded = FALSE").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to supersede previous reports: %w", err)
	}

	if _, err := db.NewInsert().Model(report).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert match report: %w", err)
	}
	return nil
}

// ListReports returns the submission history of a match, oldest first.
func (r *Impl) ListReports(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]MatchReport, error) {
	db = r.resolveDB(db)
	var reports []MatchReport
	err := db.NewSelect().
		Model(&reports).
		Where("match_id = ?", matchID).
		Order("submitted_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list match reports: %w", err)
	}
	return reports, nil
}

// LinkAccount records an account link. Linking twice is a no-op.
func (r *Impl) LinkAccount(ctx context.Context, db bun.IDB, primaryUserID, linkedUserID string) error {
	db = r.resolveDB(db)
	link := &MatchLink{PrimaryUserID: primaryUserID, LinkedUserID: linkedUserID}
	_, err := db.NewInsert().
		Model(link).
		On("CONFLICT (primary_user_id, linked_user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

// LinkedPrimaries returns the primary users userID is linked to.
func (r *Impl) LinkedPrimaries(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
	db = r.resolveDB(db)
	var primaries []string
	err := db.NewSelect().
		Model((*MatchLink)(nil)).
		Column("primary_user_id").
		Where("linked_user_id = ?", userID).
		Scan(ctx, &primaries)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked accounts: %w", err)
	}
	return primaries, nil
}
