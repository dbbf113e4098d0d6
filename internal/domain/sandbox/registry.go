package sandbox

import (
	"context"
	"sort"
	"sync"

	"github.com/quillworks/quill/internal/domain/plugin"
)

// Registry owns the live set of plugin instances keyed by plugin id.
// It is an explicitly owned context object, passed down rather than a
// process-wide singleton, and its instance map is only ever replaced
// wholesale, never patched incrementally.
type Registry struct {
	engine *Engine

	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry creates an empty registry backed by the given engine.
func NewRegistry(engine *Engine) *Registry {
	return &Registry{
		engine:    engine,
		instances: make(map[string]*Instance),
	}
}

// LoadPackages instantiates every package and replaces the entire
// instance map with the result. Bringing a plugin set online is
// all-or-nothing: the first instantiation failure aborts the whole
// call, the partially built set is torn down, and the registry keeps
// its previous instances untouched. This is deliberately asymmetric
// with discovery's per-plugin tolerance.
func (r *Registry) LoadPackages(ctx context.Context, packages []*plugin.Package) error {
	next := make(map[string]*Instance, len(packages))
	for _, pkg := range packages {
		inst, err := r.engine.Instantiate(ctx, pkg)
		if err != nil {
			for _, in := range next {
				_ = in.Close(ctx)
			}
			return err
		}
		if prev, ok := next[inst.ID()]; ok {
			_ = prev.Close(ctx)
		}
		next[inst.ID()] = inst
	}

	r.mu.Lock()
	previous := r.instances
	r.instances = next
	r.mu.Unlock()

	for _, in := range previous {
		_ = in.Close(ctx)
	}
	return nil
}

// Plugin looks up a live instance by plugin id.
func (r *Registry) Plugin(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// PluginIDs returns the ids of all live instances, sorted.
func (r *Registry) PluginIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close tears down every live instance and empties the registry.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	previous := r.instances
	r.instances = make(map[string]*Instance)
	r.mu.Unlock()

	var firstErr error
	for _, in := range previous {
		if err := in.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
