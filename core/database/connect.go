package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/surokacs/petertrain-bot/core/logger"
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver, dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}

	if driver == DriverPostgres {
		if err := WaitForPostgres(dsn, 30*time.Second); err != nil {
			logger.DB.Error("db not ready",
				slog.String("event", "db.wait"),
				slog.String("host", hostLabel(cfg)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("database not ready: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	sqlxDB, err := sqlx.ConnectContext(ctx, driver, dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", driver),
			slog.String("host", hostLabel(cfg)),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if pingErr := sqlxDB.PingContext(ctx); pingErr != nil {
		_ = sqlxDB.Close()
		logger.DB.Error("db ping failed",
			slog.String("event", "db.ping"),
			slog.String("driver", driver),
			slog.String("host", hostLabel(cfg)),
			slog.String("err", pingErr.Error()),
		)
		return nil, fmt.Errorf("db ping: %w", pingErr)
	}

	pool := cfg.MaxConnections
	if driver == DriverSQLite {
		// single writer keeps SQLITE_BUSY away
		pool = 1
	}
	if pool > 0 {
		sqlxDB.SetMaxOpenConns(pool)
		sqlxDB.SetMaxIdleConns(pool)
	}
	logger.DB.Debug("db pool configured",
		slog.String("event", "db.pool"),
		slog.Int("pool_open", pool),
	)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driver),
		slog.String("host", hostLabel(cfg)),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", pool),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}

func resolveDSN(cfg Config) (string, string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return DriverPostgres, cfg.PostgresDSN(), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("db connect: database.path is required for sqlite")
		}
		return DriverSQLite, "file:" + cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	default:
		return "", "", fmt.Errorf("db connect: unsupported driver %q", cfg.Driver)
	}
}

func hostLabel(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}
	return cfg.Host + ":" + cfg.Port
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout is reached.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
