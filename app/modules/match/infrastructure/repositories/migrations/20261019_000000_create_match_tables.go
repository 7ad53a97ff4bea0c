package matchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating matches, match_reports and match_links tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS matches (
					id UUID PRIMARY KEY,
					stage_key VARCHAR(100),
					side1_user_id VARCHAR(64) NOT NULL,
					side2_user_id VARCHAR(64) NOT NULL,
					side1_report JSONB,
					side2_report JSONB,
					canonical_result JSONB,
					completed BOOLEAN NOT NULL DEFAULT FALSE,
					version BIGINT NOT NULL DEFAULT 0 CHECK (version >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CHECK (side1_user_id <> side2_user_id),
					CHECK (NOT completed OR canonical_result IS NOT NULL)
				);
				CREATE INDEX IF NOT EXISTS idx_matches_stage_key ON matches(stage_key);
			`); err != nil {
				return fmt.Errorf("failed to create matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_reports (
					id UUID PRIMARY KEY,
					match_id UUID NOT NULL REFERENCES matches(id),
					side SMALLINT NOT NULL CHECK (side IN (1, 2)),
					report_values JSONB NOT NULL,
					submitted_by VARCHAR(64) NOT NULL,
					submitted_at TIMESTAMPTZ NOT NULL,
					match_version BIGINT NOT NULL,
					superseded BOOLEAN NOT NULL DEFAULT FALSE
				);
				CREATE INDEX IF NOT EXISTS idx_match_reports_match ON match_reports(match_id, side);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_match_reports_current
					ON match_reports(match_id, side) WHERE NOT superseded;
			`); err != nil {
				return fmt.Errorf("failed to create match_reports table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_links (
					primary_user_id VARCHAR(64) NOT NULL,
					linked_user_id VARCHAR(64) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (primary_user_id, linked_user_id)
				);
				CREATE INDEX IF NOT EXISTS idx_match_links_linked ON match_links(linked_user_id);
			`); err != nil {
				return fmt.Errorf("failed to create match_links table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping match tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS match_links;
				DROP TABLE IF EXISTS match_reports;
				DROP TABLE IF EXISTS matches;
			`); err != nil {
				return fmt.Errorf("failed to drop match tables: %w", err)
			}
			return nil
		})
	})
}
