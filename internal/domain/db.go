package domain

import (
	"context"
	"database/sql"
)

// Database defines lifecycle operations for one named database handle.
// Handles are owned by the factory that built them and must not be used
// after that factory is closed.
type Database interface {
	Name() string
	Provider() string
	SQL() *sql.DB
	Close() error
}

// MigrationsRunner applies pending schema changes to a target database.
// Implementations must be idempotent: running twice applies nothing new.
type MigrationsRunner interface {
	Migrate(ctx context.Context) error
}
