package app

import (
	"context"
	"fmt"
	"log/slog"

	matchmigrations "github.com/Black-And-White-Club/tourney-scoring/app/modules/match/infrastructure/repositories/migrations"
	stagemigrations "github.com/Black-And-White-Club/tourney-scoring/app/modules/stage/infrastructure/repositories/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrators returns one bun migrator per module. Each module tracks its
// migrations in its own table so groups roll back independently.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"match": migrate.NewMigrator(db, matchmigrations.Migrations,
			migrate.WithTableName("match_bun_migrations"),
			migrate.WithLocksTableName("match_bun_migration_locks"),
		),
		"stage": migrate.NewMigrator(db, stagemigrations.Migrations,
			migrate.WithTableName("stage_bun_migrations"),
			migrate.WithLocksTableName("stage_bun_migration_locks"),
		),
	}
}

// Migrate brings every module schema up to date.
func Migrate(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	for name, migrator := range Migrators(db) {
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", name, err)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", slog.String("module", name))
			continue
		}
		logger.InfoContext(ctx, "Migrated module",
			slog.String("module", name),
			slog.String("group", group.String()),
		)
	}
	return nil
}
