package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/recall-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// defaultMigrationsDir is where `migrate create` writes new files, relative to
// the repository root.
const defaultMigrationsDir = "internal/platform/postgres/migrations"

// migrationCommands are the goose commands exposed by `migrate`.
var migrationCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"version": true,
	"create":  true,
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level and does not exit; goose returns the error to
// the caller as well.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// runMigrations executes a goose command against db using the embedded
// migration files. create writes a new SQL file to dir instead and needs
// no database.
func runMigrations(ctx context.Context, db *sql.DB, command, dir string, args []string, logger *slog.Logger) error {
	if !migrationCommands[command] {
		return fmt.Errorf("unknown migration command %q", command)
	}

	log := logger.With("component", "migrations", "command", command)
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(migrations.TableName)
	goose.SetSequential(true)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if command == "create" {
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return fmt.Errorf("create requires exactly one migration name")
		}
		if dir == "" {
			dir = defaultMigrationsDir
		}
		goose.SetBaseFS(nil)
		return goose.Create(nil, dir, args[0], "sql")
	}

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	start := time.Now()
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	log.Info("migration command completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// latestMigrationVersion returns the highest version among the embedded files.
func latestMigrationVersion(fsys fs.FS) (int64, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return 0, err
	}
	var latest int64
	for _, name := range names {
		v, err := goose.NumericComponent(name)
		if err != nil {
			return 0, fmt.Errorf("invalid migration file name %q: %w", name, err)
		}
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

// verifySchemaVersion fails when the database is behind the embedded
// migrations, so serve never runs against an outdated schema.
func verifySchemaVersion(ctx context.Context, db *sql.DB) error {
	want, err := latestMigrationVersion(migrations.FS)
	if err != nil {
		return err
	}
	goose.SetTableName(migrations.TableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	got, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if got < want {
		return fmt.Errorf("database schema is at version %d, expected %d: run `recall-api migrate up`", got, want)
	}
	return nil
}
