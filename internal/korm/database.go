package korm

import (
	"database/sql"
	"sync"
)

// Database is a named connection pool built by a Factory. It is owned by
// the factory and closed with it.
type Database struct {
	name     string
	provider string
	db       *sql.DB

	closeOnce sync.Once
	closeErr  error
}

func newDatabase(name, provider string, db *sql.DB) *Database {
	return &Database{name: name, provider: provider, db: db}
}

// Name returns the logical name the database was registered under.
func (d *Database) Name() string {
	return d.name
}

// Provider returns the provider id the database was opened with.
func (d *Database) Provider() string {
	return d.provider
}

// SQL returns the underlying connection pool.
func (d *Database) SQL() *sql.DB {
	return d.db
}

// Close closes the connection pool. Only the first call has an effect.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}
