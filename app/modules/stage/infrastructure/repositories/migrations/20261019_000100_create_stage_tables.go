package stagemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating stages and stage_entries tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS stages (
					key VARCHAR(100) PRIMARY KEY,
					kind VARCHAR(20) NOT NULL CHECK (kind IN ('qualification', 'sudden_death', 'revival', 'finals')),
					segments JSONB NOT NULL,
					applied_segments JSONB NOT NULL DEFAULT '[]'::jsonb,
					resets INTEGER NOT NULL DEFAULT 0,
					completed BOOLEAN NOT NULL DEFAULT FALSE,
					champion_entry_id UUID,
					version BIGINT NOT NULL DEFAULT 0 CHECK (version >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create stages table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS stage_entries (
					id UUID PRIMARY KEY,
					stage_key VARCHAR(100) NOT NULL REFERENCES stages(key),
					competitor_id VARCHAR(64) NOT NULL,
					enumeration_order INTEGER NOT NULL,
					times JSONB NOT NULL DEFAULT '{}'::jsonb,
					total_time_ms BIGINT,
					score INTEGER,
					rank INTEGER,
					lives INTEGER NOT NULL DEFAULT 0 CHECK (lives >= 0),
					eliminated BOOLEAN NOT NULL DEFAULT FALSE,
					manual_elimination BOOLEAN NOT NULL DEFAULT FALSE,
					version BIGINT NOT NULL DEFAULT 0 CHECK (version >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (stage_key, competitor_id)
				);
				CREATE INDEX IF NOT EXISTS idx_stage_entries_stage ON stage_entries(stage_key, enumeration_order);
			`); err != nil {
				return fmt.Errorf("failed to create stage_entries table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping stage tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS stage_entries;
				DROP TABLE IF EXISTS stages;
			`); err != nil {
				return fmt.Errorf("failed to drop stage tables: %w", err)
			}
			return nil
		})
	})
}
