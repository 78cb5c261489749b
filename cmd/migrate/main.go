// Command migrate applies or inspects the Version Store's schema
// migrations for whichever backend (postgres or sqlite) the control plane
// is deployed against. It is grounded on the alert-history service's
// internal/database.RunMigrations/RunMigrationsDown/GetMigrationStatus
// trio, adapted from a single hardcoded Postgres pool to a
// dialect-selected *sql.DB so it can drive either migrations/postgres or
// migrations/sqlite.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func main() {
	var (
		dialect = flag.String("dialect", "postgres", "database dialect: postgres or sqlite")
		dsn     = flag.String("dsn", os.Getenv("BROKERCTL_VERSIONSTORE_DSN"), "data source name / connection string")
		command = flag.String("command", "up", "migration command: up, down, status")
		steps   = flag.Int("steps", 1, "number of steps to roll back for the down command")
	)
	flag.Parse()

	logger := slog.Default()

	if *dsn == "" {
		logger.Error("missing -dsn (or BROKERCTL_VERSIONSTORE_DSN)")
		os.Exit(1)
	}

	db, migrationsDir, err := open(*dialect, *dsn)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect(gooseDialect(*dialect)); err != nil {
		logger.Error("failed to set goose dialect", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		for i := 0; i < *steps && err == nil; i++ {
			err = goose.Down(db, migrationsDir)
		}
	case "status":
		err = goose.Status(db, migrationsDir)
	default:
		logger.Error("unknown command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	logger.Info("migration command completed", "command", *command, "dialect", *dialect)
}

func open(dialect, dsn string) (*sql.DB, string, error) {
	switch dialect {
	case "postgres":
		db, err := sql.Open("pgx", dsn)
		return db, "migrations/postgres", err
	case "sqlite":
		db, err := sql.Open("sqlite", dsn)
		return db, "migrations/sqlite", err
	default:
		return nil, "", fmt.Errorf("unsupported dialect %q (want postgres or sqlite)", dialect)
	}
}

func gooseDialect(dialect string) string {
	if dialect == "sqlite" {
		return "sqlite3"
	}
	return dialect
}
