package korm

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/migrations"
	"github.com/msomdec/kormkit/internal/provider"
)

// DatabaseConfiguration configures a freshly opened database before it is
// handed out, e.g. setting pragmas or preparing session state.
type DatabaseConfiguration interface {
	Configure(ctx context.Context, db *sql.DB) error
}

// ConfigurationFunc adapts a function to DatabaseConfiguration.
type ConfigurationFunc func(ctx context.Context, db *sql.DB) error

func (f ConfigurationFunc) Configure(ctx context.Context, db *sql.DB) error {
	return f(ctx, db)
}

// Builder is the construction recipe for one logical database. It is
// configured at registration time and sealed by the first build; later
// configuration calls are ignored.
type Builder struct {
	name     string
	settings domain.ConnectionSettings

	mu      sync.Mutex
	configs []DatabaseConfiguration
	runner  *migrations.Runner
	sealed  bool
}

// NewBuilder validates settings and returns a builder for name.
func NewBuilder(name string, settings domain.ConnectionSettings) (*Builder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is blank", domain.ErrInvalidName)
	}
	if strings.TrimSpace(settings.ConnectionString) == "" {
		return nil, fmt.Errorf("%w: database %q", domain.ErrEmptyConnection, name)
	}
	settings.Provider = settings.ProviderOrDefault()
	return &Builder{name: name, settings: settings}, nil
}

// Name returns the logical name.
func (b *Builder) Name() string {
	return b.name
}

// Settings returns the resolved connection settings.
func (b *Builder) Settings() domain.ConnectionSettings {
	return b.settings
}

// UseDatabaseConfiguration adds cfg to the configurations applied on build.
func (b *Builder) UseDatabaseConfiguration(cfg DatabaseConfiguration) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		slog.Warn("database configuration added after first build is ignored", "name", b.name)
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

// AddMigrations attaches a migrations runner for this database. Without
// options scripts are read from the migrations directory.
func (b *Builder) AddMigrations(opts ...migrations.Option) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	opts = append([]migrations.Option{migrations.WithPlaceholder(provider.Placeholder(b.settings.Provider))}, opts...)
	b.runner = migrations.NewRunner(b.open, opts...)
	return b
}

// MigrationsRunner returns the runner added by AddMigrations, or nil.
func (b *Builder) MigrationsRunner() domain.MigrationsRunner {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runner == nil {
		return nil
	}
	return b.runner
}

// Migrate runs migrations when the settings enable AutoMigrate and a
// runner was added. Otherwise it does nothing.
func (b *Builder) Migrate(ctx context.Context) error {
	runner := b.MigrationsRunner()
	if !b.settings.AutoMigrate || runner == nil {
		return nil
	}
	if err := runner.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %q: %w", b.name, err)
	}
	slog.Info("database migrated", "name", b.name)
	return nil
}

func (b *Builder) open(ctx context.Context) (*sql.DB, error) {
	return provider.Open(ctx, b.settings)
}

// build opens the database and applies the configurations.
func (b *Builder) build(ctx context.Context) (*Database, error) {
	b.mu.Lock()
	b.sealed = true
	configs := b.configs
	b.mu.Unlock()

	db, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	built := false
	defer func() {
		if !built {
			db.Close()
		}
	}()
	for _, cfg := range configs {
		if err := cfg.Configure(ctx, db); err != nil {
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}
	built = true
	slog.Debug("database built", "name", b.name, "provider", b.settings.Provider)
	return newDatabase(b.name, b.settings.Provider, db), nil
}
