package provider

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/kormkit/internal/domain"
	_ "modernc.org/sqlite"
)

// openSQLite opens a SQLite database and configures it for use.
// It enables WAL mode and foreign keys.
func openSQLite(ctx context.Context, settings domain.ConnectionSettings) (*sql.DB, error) {
	db, err := sql.Open("sqlite", settings.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return ping(ctx, db)
}
