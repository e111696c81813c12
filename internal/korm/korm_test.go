package korm_test

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/korm"
	"github.com/msomdec/kormkit/internal/migrations"
)

// Verify the concrete types implement the domain interfaces at compile time.
var (
	_ domain.Database         = (*korm.Database)(nil)
	_ domain.MigrationsRunner = (*migrations.Runner)(nil)
)

// countBuilds attaches a configuration that counts how often b is built.
func countBuilds(b *korm.Builder) *atomic.Int32 {
	var n atomic.Int32
	b.UseDatabaseConfiguration(korm.ConfigurationFunc(func(ctx context.Context, db *sql.DB) error {
		n.Add(1)
		return nil
	}))
	return &n
}

func mustAdd(t *testing.T, svc *korm.Services, connectionString, name string) *korm.Builder {
	t.Helper()
	b, err := svc.AddConnectionString(connectionString, name)
	if err != nil {
		t.Fatalf("AddConnectionString(%q, %q): %v", connectionString, name, err)
	}
	return b
}

func newFactory(t *testing.T, svc *korm.Services) *korm.Factory {
	t.Helper()
	f := svc.NewFactory()
	t.Cleanup(func() { f.Close() })
	return f
}
