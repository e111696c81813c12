// Package provider maps provider ids to database/sql drivers and opens
// connections from resolved settings.
package provider

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/msomdec/kormkit/internal/domain"
)

// Opener opens and verifies a connection pool for one provider.
type Opener func(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{
		"sqlite":   openSQLite,
		"pgx":      openPgx,
		"postgres": openPostgres,
		"mysql":    openMySQL,
	}
)

// Register makes an opener available under id. It replaces any opener
// previously registered under the same id.
func Register(id string, open Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[strings.ToLower(id)] = open
}

// Providers returns the registered provider ids, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(openers))
	for id := range openers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Lookup returns the opener for id. Ids are case-insensitive.
func Lookup(id string) (Opener, bool) {
	mu.RLock()
	defer mu.RUnlock()
	open, ok := openers[strings.ToLower(id)]
	return open, ok
}

// Open opens a connection pool for settings using its provider.
func Open(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
	id := settings.ProviderOrDefault()
	open, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id)
	}
	return open(ctx, settings)
}

// ping verifies db and closes it on failure.
func ping(ctx context.Context, db *sql.DB) (*sql.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Placeholder returns the bind variable style of provider id.
func Placeholder(id string) func(n int) string {
	switch strings.ToLower(id) {
	case "pgx", "postgres":
		return func(n int) string { return "$" + strconv.Itoa(n) }
	}
	return func(int) string { return "?" }
}
