package korm

import (
	"fmt"
	"slices"
	"sync"

	"github.com/msomdec/kormkit/internal/domain"
)

// Registry maps logical names to builders for one Services instance.
// Names are unique: registering a name twice fails.
type Registry struct {
	mu       sync.Mutex
	builders map[string]*Builder
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]*Builder)}
}

// Register adds b under name. It reports whether this was the first
// registration in the registry. An existing name is never overwritten.
func (r *Registry) Register(name string, b *Builder) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return false, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
	}
	r.builders[name] = b
	r.order = append(r.order, name)
	return len(r.order) == 1, nil
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (*Builder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.builders[name]
	return b, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// First returns the first registered name, or "" when empty.
func (r *Registry) First() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}
