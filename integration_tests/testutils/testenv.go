package testutils

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/Black-And-White-Club/tourney-scoring/app"
	"github.com/Black-And-White-Club/tourney-scoring/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// TestEnvironment holds the containers and connections shared by one test package.
type TestEnvironment struct {
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	DSN           string
	NatsURL       string
	Logger        *slog.Logger
}

// Options selects the optional containers.
type Options struct {
	NATS bool
}

// NewTestEnvironment starts Postgres (and NATS when asked) and migrates every module.
func NewTestEnvironment(ctx context.Context, opts Options) (*TestEnvironment, error) {
	env := &TestEnvironment{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})),
	}

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env.PgContainer, env.DSN = pg, dsn

	env.DB = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	if err := app.Migrate(ctx, env.DB, env.Logger); err != nil {
		env.Terminate()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	if opts.NATS {
		nc, url, err := containers.SetupNatsContainer(ctx)
		if err != nil {
			env.Terminate()
			return nil, err
		}
		env.NatsContainer, env.NatsURL = nc, url
	}
	return env, nil
}

// Reset empties every module table between tests.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	_, err := env.DB.ExecContext(ctx, `TRUNCATE stage_entries, stages, match_reports, match_links, matches RESTART IDENTITY CASCADE`)
	return err
}

// Terminate closes connections and stops the containers.
func (env *TestEnvironment) Terminate() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		_ = testcontainers.TerminateContainer(env.NatsContainer)
	}
	if env.PgContainer != nil {
		_ = testcontainers.TerminateContainer(env.PgContainer)
	}
}

// RunMain is the body of an integration package's TestMain. It skips the
// package under -short and when Docker is unavailable.
func RunMain(m *testing.M, opts Options, env **TestEnvironment) int {
	flag.Parse()
	if testing.Short() {
		return 0
	}
	ctx := context.Background()
	e, err := NewTestEnvironment(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skipping integration tests: %v\n", err)
		return 0
	}
	defer e.Terminate()
	*env = e
	return m.Run()
}
