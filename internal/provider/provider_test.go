package provider_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/provider"
)

func TestOpenSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := provider.Open(context.Background(), domain.ConnectionSettings{ConnectionString: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// Verify the file was created.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	// Verify foreign keys are enabled.
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestOpenProviderIsCaseInsensitive(t *testing.T) {
	settings := domain.ConnectionSettings{ConnectionString: ":memory:", Provider: "SQLite"}

	db, err := provider.Open(context.Background(), settings)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()
}

func TestOpenUnknownProvider(t *testing.T) {
	_, err := provider.Open(context.Background(), domain.ConnectionSettings{ConnectionString: "x", Provider: "LoremIpsum"})
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestOpenInvalidConnectionStrings(t *testing.T) {
	tests := []domain.ConnectionSettings{
		{Provider: "pgx", ConnectionString: "postgres://%zz"},
		{Provider: "mysql", ConnectionString: "not a dsn"},
	}
	for _, settings := range tests {
		t.Run(settings.Provider, func(t *testing.T) {
			if _, err := provider.Open(context.Background(), settings); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestRegister(t *testing.T) {
	var opened int
	provider.Register("Counting-Test", func(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
		opened++
		return provider.Open(ctx, domain.ConnectionSettings{ConnectionString: settings.ConnectionString})
	})

	if !slices.Contains(provider.Providers(), "counting-test") {
		t.Fatalf("expected counting-test in %v", provider.Providers())
	}

	db, err := provider.Open(context.Background(), domain.ConnectionSettings{ConnectionString: ":memory:", Provider: "counting-test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()
	if opened != 1 {
		t.Fatalf("expected 1 open, got %d", opened)
	}
}
