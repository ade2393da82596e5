package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	coredatabase "github.com/surokacs/petertrain-bot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunSkipsSQLForJSONFile(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverJSONFile},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatal("jsonfile driver must not open a SQL connection")
	}
}

func TestRunPropagatesConnectError(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverPostgres},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return nil, errors.New("refused")
		},
	})
	if err == nil {
		t.Fatal("expected connect error")
	}
}

func TestRunStopsOnFailedCheck(t *testing.T) {
	sentinel := errors.New("catalog missing")
	calls := 0
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverJSONFile},
		LoggerInit: noLogger,
		Checks: []Check{
			CheckFunc(func(context.Context) error { calls++; return sentinel }),
			CheckFunc(func(context.Context) error { calls++; return nil }),
		},
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Fatalf("checks run = %d, want 1", calls)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
