package adapter

import (
	"fmt"
	"sort"

	"github.com/wonny/datagate/internal/contracts"
)

// Registry holds the configured data service adapters keyed by name.
// The orchestrator resolves a contract's data_sources against it; adapters
// are registered at startup and read-only afterwards.
type Registry struct {
	adapters map[string]contracts.DataServiceAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]contracts.DataServiceAdapter)}
}

// Register adds an adapter under its capability name. Registering the same
// name twice is a wiring bug and fails.
func (r *Registry) Register(a contracts.DataServiceAdapter) error {
	name := a.Capabilities().Name
	if name == "" {
		return fmt.Errorf("adapter has empty name")
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (contracts.DataServiceAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered adapter names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a contract's data source names to registered adapters,
// preserving source order and skipping unregistered names. A contract whose
// sources are all unregistered (including the "unknown" fallback) resolves
// to an empty slice, which sends it straight to synthetic generation.
func (r *Registry) Resolve(dataSources []string) []contracts.DataServiceAdapter {
	var resolved []contracts.DataServiceAdapter
	for _, name := range dataSources {
		if a, ok := r.adapters[name]; ok {
			resolved = append(resolved, a)
		}
	}
	return resolved
}
