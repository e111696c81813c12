package korm_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
)

var testScripts = fstest.MapFS{
	"001_items.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestNewBuilder_Invalid(t *testing.T) {
	if _, err := korm.NewBuilder("", domain.ConnectionSettings{ConnectionString: "x"}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	for _, cs := range []string{"", " \t "} {
		if _, err := korm.NewBuilder("db", domain.ConnectionSettings{ConnectionString: cs}); !errors.Is(err, domain.ErrEmptyConnection) {
			t.Fatalf("%q: expected ErrEmptyConnection, got %v", cs, err)
		}
	}
}

func TestNewBuilder_DefaultProvider(t *testing.T) {
	b, err := korm.NewBuilder("db", domain.ConnectionSettings{ConnectionString: "x"})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if b.Settings().Provider != domain.DefaultProvider {
		t.Fatalf("expected default provider, got %q", b.Settings().Provider)
	}
}

func TestBuilder_MigrationsRunnerNilByDefault(t *testing.T) {
	svc := korm.NewServices()
	b := mustAdd(t, svc, ":memory:", "db")

	if b.MigrationsRunner() != nil {
		t.Fatal("expected no runner before AddMigrations")
	}
	runner, err := newFactory(t, svc).MigrationsRunner("db")
	if err != nil {
		t.Fatalf("MigrationsRunner: %v", err)
	}
	if runner != nil {
		t.Fatal("expected nil runner from factory")
	}

	b.AddMigrations(migrations.WithScripts(testScripts, "."))
	if b.MigrationsRunner() == nil {
		t.Fatal("expected runner after AddMigrations")
	}
}

func TestBuilder_MigrateBasedOnAutoMigrate(t *testing.T) {
	tests := []struct {
		autoMigrate bool
		wantTable   bool
	}{
		{true, true},
		{false, false},
	}
	for _, tt := range tests {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		svc := korm.NewServices()
		b, err := svc.AddSettings(domain.ConnectionSettings{ConnectionString: dbPath, AutoMigrate: tt.autoMigrate}, "")
		if err != nil {
			t.Fatalf("AddSettings: %v", err)
		}
		b.AddMigrations(migrations.WithScripts(testScripts, "."))

		if err := b.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate: %v", err)
		}

		db, err := newFactory(t, svc).Default(context.Background())
		if err != nil {
			t.Fatalf("Default: %v", err)
		}
		if got := tableExists(t, db.SQL(), "items"); got != tt.wantTable {
			t.Fatalf("autoMigrate=%v: expected items table=%v, got %v", tt.autoMigrate, tt.wantTable, got)
		}
	}
}

func TestBuilder_MigrateWithoutRunner(t *testing.T) {
	b, err := korm.NewBuilder("db", domain.ConnectionSettings{ConnectionString: "x", AutoMigrate: true})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate without runner should be a no-op, got %v", err)
	}
}

func TestBuilder_UseDatabaseConfiguration(t *testing.T) {
	svc := korm.NewServices()
	b := mustAdd(t, svc, ":memory:", "db")
	b.UseDatabaseConfiguration(korm.ConfigurationFunc(func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, "CREATE TABLE configured (id INTEGER)")
		return err
	}))

	db, err := newFactory(t, svc).Database(context.Background(), "db")
	if err != nil {
		t.Fatalf("Database: %v", err)
	}
	if !tableExists(t, db.SQL(), "configured") {
		t.Fatal("expected configuration to run on build")
	}
}

func TestBuilder_ConfigurationAfterBuildIgnored(t *testing.T) {
	svc := korm.NewServices()
	b := mustAdd(t, svc, ":memory:", "db")
	if _, err := newFactory(t, svc).Database(context.Background(), "db"); err != nil {
		t.Fatalf("Database: %v", err)
	}

	late := countBuilds(b)
	if _, err := newFactory(t, svc).Database(context.Background(), "db"); err != nil {
		t.Fatalf("Database: %v", err)
	}
	if late.Load() != 0 {
		t.Fatal("configuration added after the first build must not run")
	}
}
