package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	coredatabase "github.com/surokacs/petertrain-bot/core/database"
	"github.com/surokacs/petertrain-bot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(*sqlx.DB, coredatabase.Config) error

	// Checks run after infrastructure is ready; the first failure aborts startup.
	Checks []Check
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when the configured driver does not use SQL.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database handle if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, connects to the database, applies migrations
// and runs startup checks.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database.UsesSQL() {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(db, opts.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	}

	for _, check := range opts.Checks {
		if err := check.Check(ctx); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: startup check failed: %w", err)
		}
	}
	return res, nil
}
