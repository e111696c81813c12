// Package migrations applies SQL migration scripts and debounces
// migration requests per logical database.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/msomdec/kormkit/internal/domain"
)

// DefaultTable records applied scripts.
const DefaultTable = "schema_migrations"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures where scripts come from and how they are recorded.
type Options struct {
	// FS holds the *.sql scripts, applied in lexical order of file name.
	FS fs.FS
	// Dir is the directory inside FS containing the scripts.
	Dir string
	// Table records applied scripts.
	Table string
	// Placeholder returns the bind variable for the n-th (1-based) argument.
	Placeholder func(n int) string
}

// Option modifies Options.
type Option func(*Options)

// WithScripts reads scripts from dir inside fsys.
func WithScripts(fsys fs.FS, dir string) Option {
	return func(o *Options) {
		o.FS = fsys
		o.Dir = dir
	}
}

// WithTable records applied scripts in table instead of DefaultTable.
func WithTable(table string) Option {
	return func(o *Options) { o.Table = table }
}

// WithPlaceholder sets the bind variable style of the target database.
func WithPlaceholder(placeholder func(n int) string) Option {
	return func(o *Options) { o.Placeholder = placeholder }
}

// NewOptions returns the defaults overridden by opts. Scripts default to
// the migrations directory relative to the working directory.
func NewOptions(opts ...Option) Options {
	o := Options{
		FS:          os.DirFS("migrations"),
		Dir:         ".",
		Table:       DefaultTable,
		Placeholder: func(int) string { return "?" },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Runner applies migrations to a database it opens for each run.
type Runner struct {
	open func(ctx context.Context) (*sql.DB, error)
	opts Options
}

// NewRunner creates a Runner. open is called on every Migrate and the
// returned pool is closed when the run finishes.
func NewRunner(open func(ctx context.Context) (*sql.DB, error), opts ...Option) *Runner {
	return &Runner{open: open, opts: NewOptions(opts...)}
}

// Options returns the options the runner was created with.
func (r *Runner) Options() Options {
	return r.opts
}

// Migrate opens the target database and applies all unapplied scripts.
func (r *Runner) Migrate(ctx context.Context) error {
	db, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return Run(ctx, db, r.opts)
}

// Run applies all unapplied migrations from opts.FS to the database.
// It tracks applied migrations in opts.Table.
func Run(ctx context.Context, db *sql.DB, opts Options) error {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.FS == nil {
		return fmt.Errorf("%w: no migration scripts", domain.ErrInvalidInput)
	}
	if !tableName.MatchString(opts.Table) {
		return fmt.Errorf("%w: migrations table %q", domain.ErrInvalidInput, opts.Table)
	}
	if opts.Placeholder == nil {
		opts.Placeholder = func(int) string { return "?" }
	}

	if err := ensureMigrationsTable(ctx, db, opts.Table); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db, opts.Table)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	files, err := listMigrationFiles(opts.FS, opts.Dir)
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}

	for _, filename := range files {
		if applied[filename] {
			slog.Debug("migration already applied", "file", filename)
			continue
		}

		if err := applyMigration(ctx, db, opts, filename); err != nil {
			return fmt.Errorf("apply migration %s: %w", filename, err)
		}
		slog.Info("migration applied", "file", filename)
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB, table string) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+table+` (
			filename VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func getAppliedMigrations(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT filename FROM "+table+" ORDER BY filename")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}
	return applied, rows.Err()
}

func listMigrationFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyMigration(ctx context.Context, db *sql.DB, opts Options, filename string) error {
	content, err := fs.ReadFile(opts.FS, path.Join(opts.Dir, filename))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute sql: %w", err)
	}

	insert := "INSERT INTO " + opts.Table + " (filename) VALUES (" + opts.Placeholder(1) + ")"
	if _, err := tx.ExecContext(ctx, insert, filename); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
