package database

import (
	"reflect"
	"testing"
)

func TestEmbeddedMigrationsPerDriver(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverSQLite} {
		files := listMigrationFiles(migrationsFS, "migrations/"+driver)
		if len(files) == 0 {
			t.Fatalf("%s: no embedded up migrations", driver)
		}
		if files[0] != "000001_create_orders.up.sql" {
			t.Fatalf("%s: first migration = %s", driver, files[0])
		}
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}
	got := selectApplied(files, 1, 3)
	want := []string{"000002_b.up.sql", "000003_c.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selectApplied = %v, want %v", got, want)
	}
	if got := selectApplied(files, 3, 3); got != nil {
		t.Fatalf("no-op range returned %v", got)
	}
}

func TestResolveDSN(t *testing.T) {
	driver, dsn, err := resolveDSN(Config{Driver: DriverSQLite, Path: "data/orders.db"})
	if err != nil || driver != "sqlite" {
		t.Fatalf("sqlite resolve: %s %v", driver, err)
	}
	if dsn != "file:data/orders.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("sqlite dsn = %s", dsn)
	}
	if _, _, err := resolveDSN(Config{Driver: DriverSQLite}); err == nil {
		t.Fatal("expected error for sqlite without path")
	}
	if _, _, err := resolveDSN(Config{Driver: DriverJSONFile}); err == nil {
		t.Fatal("jsonfile must not resolve to a SQL driver")
	}
	_, pg, _ := resolveDSN(Config{Driver: DriverPostgres, User: "u", Password: "p", Host: "h", Port: "5432", Name: "shop", SSLMode: "disable"})
	if pg != "user=u password=p host=h port=5432 dbname=shop sslmode=disable" {
		t.Fatalf("postgres dsn = %s", pg)
	}
}
