package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/Black-And-White-Club/tourney-scoring/app"
	"github.com/Black-And-White-Club/tourney-scoring/app/shared/observability"
	"github.com/Black-And-White-Club/tourney-scoring/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN))), pgdialect.New())
	defer db.Close()

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "scoring schema migrations",
		Commands: []*cli.Command{
			migrationsCommand(db, observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.Environment)),
		},
	}
	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

var moduleFlag = &cli.StringFlag{
	Name:    "module",
	Aliases: []string{"m"},
	Usage:   "limit the command to one module (match, stage)",
}

// selected returns the migrators the command targets, in name order.
func selected(c *cli.Context, migrators map[string]*migrate.Migrator) ([]string, error) {
	if name := c.String(moduleFlag.Name); name != "" {
		if _, ok := migrators[name]; !ok {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		return []string{name}, nil
	}
	return slices.Sorted(maps.Keys(migrators)), nil
}

func eachModule(migrators map[string]*migrate.Migrator, fn func(ctx context.Context, name string, m *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		names, err := selected(c, migrators)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := fn(c.Context, name, migrators[name]); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}
}

func migrationsCommand(db *bun.DB, logger *slog.Logger) *cli.Command {
	migrators := app.Migrators(db)
	return &cli.Command{
		Name:  "migrate",
		Usage: "match and stage schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "create migration tables and apply pending migrations for every module",
				Action: func(c *cli.Context) error {
					return app.Migrate(c.Context, db, logger)
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Flags: []cli.Flag{moduleFlag},
				Action: eachModule(migrators, func(ctx context.Context, name string, m *migrate.Migrator) error {
					group, err := m.Rollback(ctx)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Printf("%s: nothing to roll back\n", name)
						return nil
					}
					fmt.Printf("%s: rolled back %s\n", name, group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print applied and pending migrations",
				Flags: []cli.Flag{moduleFlag},
				Action: eachModule(migrators, func(ctx context.Context, name string, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("%s\n  applied: %s\n  pending: %s\n", name, ms.Applied(), ms.Unapplied())
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "scaffold a Go migration",
				ArgsUsage: "<module> <name words...>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return cli.ShowSubcommandHelp(c)
					}
					m, ok := migrators[c.Args().First()]
					if !ok {
						return fmt.Errorf("unknown module %q", c.Args().First())
					}
					mf, err := m.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					fmt.Printf("created %s\n", mf.Path)
					return nil
				},
			},
		},
	}
}
