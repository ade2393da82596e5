package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/surokacs/petertrain-bot/core/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies all embedded up migrations for the configured driver.
func RunMigrations(db *sqlx.DB, cfg Config) error {
	if db == nil {
		return fmt.Errorf("migrations: nil database handle")
	}
	dir := path.Join("migrations", cfg.Driver)

	files := listMigrationFiles(migrationsFS, dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	args := []any{
		slog.String("event", "resolve"),
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
	}
	if preview != "" {
		args = append(args, slog.String("files_preview", preview))
	}
	if truncated {
		args = append(args, slog.Bool("files_truncated", true))
	}
	logger.MIG.Debug("migrations resolved", args...)

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return migrateInitErr(fmt.Errorf("open embedded migrations: %w", err))
	}

	var target database.Driver
	switch cfg.Driver {
	case DriverPostgres:
		target, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		target, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return migrateInitErr(err)
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, target)
	if err != nil {
		return migrateInitErr(err)
	}
	// The sqlite driver closes the shared *sql.DB on Close, so only the
	// postgres driver (which holds a dedicated conn) is released here.
	if cfg.Driver == DriverPostgres {
		defer m.Close()
	}

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.MIG.Info("migrations summary",
			slog.String("event", "summary"),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return nil
	default:
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	appliedNames := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(appliedNames) > 0 {
		previewApplied, truncatedApplied := logger.SummarizeStrings(appliedNames, 6)
		args := []any{
			slog.String("event", "apply"),
			slog.Int("files_total", len(appliedNames)),
		}
		if previewApplied != "" {
			args = append(args, slog.String("files_preview", previewApplied))
		}
		if truncatedApplied {
			args = append(args, slog.Bool("files_truncated", true))
		}
		logger.MIG.Debug("applied files", args...)
	}

	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(appliedNames)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

func migrateInitErr(err error) error {
	logger.MIG.Error("init failed",
		slog.String("event", "db.migrate"),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("failed to initialize migrations: %w", err)
}

func listMigrationFiles(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
