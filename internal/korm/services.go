// Package korm registers named databases and hands them out per scope.
//
// A host creates one Services at startup and registers every logical
// database on it. Each request (or other unit of work) then gets its own
// Factory, which builds databases lazily and closes them when the scope
// ends:
//
//	svc := korm.NewServices()
//	b, err := svc.AddConfig(cfg, "")
//	...
//	b.AddMigrations()
//	f := svc.NewFactory()
//	defer f.Close()
//	db, err := f.Default(ctx)
package korm

import (
	"fmt"
	"log/slog"

	"github.com/msomdec/kormkit/internal/config"
	"github.com/msomdec/kormkit/internal/domain"
)

// Services is the registration surface for named databases. It owns the
// registry shared by every factory it creates.
type Services struct {
	registry *Registry
}

// NewServices creates Services with an empty registry.
func NewServices() *Services {
	return &Services{registry: NewRegistry()}
}

// Registry returns the registry backing s.
func (s *Services) Registry() *Registry {
	return s.registry
}

// NewFactory creates a factory for a new scope. The caller must Close it.
func (s *Services) NewFactory() *Factory {
	return NewFactory(s.registry)
}

// AddConfig registers the database name using settings resolved from cfg.
// An empty name means domain.DefaultConnectionName.
func (s *Services) AddConfig(cfg *config.Config, name string) (*Builder, error) {
	name = nameOrDefault(name)
	settings, ok, err := cfg.ConnectionSettings(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no connection string named %q", domain.ErrNotFound, name)
	}
	return s.AddSettings(settings, name)
}

// AddConnectionString registers the database name from a combined
// connection string that may carry the KormProvider and KormAutoMigrate
// keys. An empty name means domain.DefaultConnectionName.
func (s *Services) AddConnectionString(connectionString, name string) (*Builder, error) {
	name = nameOrDefault(name)
	settings, err := config.ParseConnectionString(connectionString)
	if err != nil {
		return nil, fmt.Errorf("database %q: %w", name, err)
	}
	return s.AddSettings(settings, name)
}

// AddSettings registers the database name with explicit settings. An
// empty name means domain.DefaultConnectionName.
func (s *Services) AddSettings(settings domain.ConnectionSettings, name string) (*Builder, error) {
	name = nameOrDefault(name)
	b, err := NewBuilder(name, settings)
	if err != nil {
		return nil, err
	}
	first, err := s.registry.Register(name, b)
	if err != nil {
		return nil, err
	}
	slog.Info("database registered", "name", name, "provider", b.settings.Provider, "primary", first)
	return b, nil
}

func nameOrDefault(name string) string {
	if name == "" {
		return domain.DefaultConnectionName
	}
	return name
}
