package handler_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
	"github.com/msomdec/kormkit/internal/provider"
)

var testScripts = fstest.MapFS{
	"001_items.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
}

var brokenScripts = fstest.MapFS{
	"001_broken.sql": {Data: []byte("INSERT INTO missing VALUES (1);")},
}

var providerSeq atomic.Int32

// countingProvider registers a SQLite-backed provider that counts opens.
func countingProvider(t *testing.T) (string, *atomic.Int32) {
	t.Helper()
	id := fmt.Sprintf("handler-test-%d", providerSeq.Add(1))
	var opens atomic.Int32
	provider.Register(id, func(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
		opens.Add(1)
		settings.Provider = "sqlite"
		return provider.Open(ctx, settings)
	})
	return id, &opens
}

// addDatabase registers a file database named name on svc.
func addDatabase(t *testing.T, svc *korm.Services, name, providerID string) *korm.Builder {
	t.Helper()
	settings := domain.ConnectionSettings{
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
		Provider:         providerID,
	}
	b, err := svc.AddSettings(settings, name)
	if err != nil {
		t.Fatalf("AddSettings(%q): %v", name, err)
	}
	return b
}

func newTestCache() *migrations.Cache {
	return migrations.NewCache(migrations.DefaultWindow)
}
