package engine

import (
	"sync"

	"mercator-hq/auditor/pkg/checks"
)

// Registry is the ordered set of loaded check definitions, addressable by
// ID. Replace swaps the whole set atomically, so readers see either the old
// or the new rules, never a mix.
type Registry struct {
	mu   sync.RWMutex
	defs []*checks.Definition
	byID map[string]*checks.Definition
}

// NewRegistry creates a registry holding defs in order.
func NewRegistry(defs []*checks.Definition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Get returns the definition with the given ID.
func (r *Registry) Get(id string) (*checks.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	return def, ok
}

// List returns the definitions in load order.
func (r *Registry) List() []*checks.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*checks.Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Replace installs a new rule set.
func (r *Registry) Replace(defs []*checks.Definition) {
	byID := make(map[string]*checks.Definition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}
	ordered := make([]*checks.Definition, len(defs))
	copy(ordered, defs)

	r.mu.Lock()
	r.defs = ordered
	r.byID = byID
	r.mu.Unlock()
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
