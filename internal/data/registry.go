package data

import (
	"path/filepath"
	"sync"
)

// Registry owns one Provider per canonical file path, constructed under
// a registry mutex then shared read-only for rows (spec.md §5 "Shared
// mutable resources"). This is the process-scoped singleton spec.md §9
// calls for ("DataProvider registry... become process-scoped objects
// owned by the Runner and injected into VUs").
type Registry struct {
	mu        sync.Mutex
	providers map[string]*Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Get returns the Provider for path, constructing and loading it on
// first use. Concurrent callers for the same canonical path share one
// Provider instance and trigger Load at most once.
func (r *Registry) Get(path string, opts Options) (*Provider, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		canonical = path
	}

	r.mu.Lock()
	p, exists := r.providers[canonical]
	if !exists {
		p = NewProvider(path, opts)
		r.providers[canonical] = p
	}
	r.mu.Unlock()

	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset drops every cached provider. Used between independent test runs
// sharing one Registry (e.g. in tests).
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]*Provider)
}
