package korm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/msomdec/kormkit/internal/domain"
)

// Factory builds and caches databases for one scope, usually one request.
// Each name is built at most once per factory, on first use; concurrent
// first requests share the same build. Close closes everything it built.
type Factory struct {
	registry *Registry

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// entry is a one-shot build result; ready is closed once db/err are set.
type entry struct {
	ready chan struct{}
	db    *Database
	err   error
}

// fill builds the database and closes ready. A panicking build is
// recorded as the entry's error so waiters and Close are released.
func (e *entry) fill(ctx context.Context, name string, b *Builder) {
	defer close(e.ready)
	defer func() {
		if r := recover(); r != nil {
			e.db, e.err = nil, fmt.Errorf("build database %q: %w: %v", name, domain.ErrBuildPanic, r)
		}
	}()
	e.db, e.err = b.build(ctx)
	if e.err != nil {
		e.err = fmt.Errorf("build database %q: %w", name, e.err)
	}
}

// NewFactory creates a factory resolving names through registry.
func NewFactory(registry *Registry) *Factory {
	return &Factory{registry: registry, entries: make(map[string]*entry)}
}

// Database returns the database registered under name, building it on first
// use. Building is not cancelled by ctx; ctx only bounds the wait.
func (f *Factory) Database(ctx context.Context, name string) (*Database, error) {
	b, err := f.builder(name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, domain.ErrDisposed
	}
	e, ok := f.entries[name]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		f.entries[name] = e
	}
	f.mu.Unlock()

	if !ok {
		e.fill(context.WithoutCancel(ctx), name, b)
		return e.db, e.err
	}

	select {
	case <-e.ready:
		return e.db, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Default returns the database registered under domain.DefaultConnectionName.
func (f *Factory) Default(ctx context.Context) (*Database, error) {
	return f.Database(ctx, domain.DefaultConnectionName)
}

// Primary returns the database registered first, whatever its name.
func (f *Factory) Primary(ctx context.Context) (*Database, error) {
	name := f.registry.First()
	if name == "" {
		return nil, fmt.Errorf("%w: no database registered", domain.ErrInvalidName)
	}
	return f.Database(ctx, name)
}

// MigrationsRunner returns the migrations runner of name, or nil when the
// database has none.
func (f *Factory) MigrationsRunner(name string) (domain.MigrationsRunner, error) {
	b, err := f.builder(name)
	if err != nil {
		return nil, err
	}
	return b.MigrationsRunner(), nil
}

// Close marks the factory disposed and closes every database it built.
// Builds still in flight are waited for and closed as well.
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	entries := f.entries
	f.entries = nil
	f.mu.Unlock()

	var errs []error
	for _, e := range entries {
		<-e.ready
		if e.db != nil {
			if err := e.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database %q: %w", e.db.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (f *Factory) builder(name string) (*Builder, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, domain.ErrDisposed
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is blank", domain.ErrInvalidName)
	}
	b, ok := f.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", domain.ErrInvalidName, name)
	}
	return b, nil
}
