// Package registry holds the process-wide set of engine.Adapters and their
// EngineDescriptors, published as an immutable copy-on-write snapshot so
// concurrent Dispatcher workers never take a lock to read it.
package registry

import (
	"sync/atomic"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

// entry pairs a descriptor with the adapter that produced it, so Resolve
// and the Dispatcher can hand back both without a second lookup.
type entry struct {
	descriptor schema.EngineDescriptor
	adapter    engine.Adapter
}

type snapshot struct {
	byName  map[string]entry
	ordered []string
}

// Registry is read-mostly: Reconfigure publishes a brand new snapshot, every
// other method reads the current one via an atomic pointer load.
type Registry struct {
	current atomic.Pointer[snapshot]
}

// New builds a Registry from a fixed set of adapters, in iteration order.
func New(adapters ...engine.Adapter) *Registry {
	r := &Registry{}
	r.Reconfigure(adapters...)
	return r
}

// Reconfigure replaces the registry's contents with a fresh immutable
// snapshot built from adapters. Existing readers keep using the snapshot
// they already loaded.
func (r *Registry) Reconfigure(adapters ...engine.Adapter) {
	snap := &snapshot{
		byName:  make(map[string]entry, len(adapters)),
		ordered: make([]string, 0, len(adapters)),
	}
	for _, a := range adapters {
		d := a.Descriptor()
		if d.Name == "" {
			continue
		}
		snap.byName[d.Name] = entry{descriptor: d, adapter: a}
		snap.ordered = append(snap.ordered, d.Name)
	}
	r.current.Store(snap)
}

// List returns every registered descriptor, in registration order.
func (r *Registry) List() []schema.EngineDescriptor {
	snap := r.current.Load()
	out := make([]schema.EngineDescriptor, 0, len(snap.ordered))
	for _, name := range snap.ordered {
		out = append(out, snap.byName[name].descriptor)
	}
	return out
}

// Resolve filters the registry down to the named engines, silently dropping
// names that don't exist. An empty or nil names slice resolves to every
// enabled engine.
func (r *Registry) Resolve(names []string) []schema.EngineDescriptor {
	snap := r.current.Load()
	if len(names) == 0 {
		return r.Enabled()
	}
	out := make([]schema.EngineDescriptor, 0, len(names))
	for _, name := range names {
		if e, ok := snap.byName[name]; ok {
			out = append(out, e.descriptor)
		}
	}
	return out
}

// Adapter looks up the live adapter behind a descriptor name, for the
// Dispatcher to invoke. The bool is false for an unknown name.
func (r *Registry) Adapter(name string) (engine.Adapter, bool) {
	snap := r.current.Load()
	e, ok := snap.byName[name]
	return e.adapter, ok
}

// Enabled excludes adapters that are explicitly disabled or are missing
// required credentials.
func (r *Registry) Enabled() []schema.EngineDescriptor {
	snap := r.current.Load()
	out := make([]schema.EngineDescriptor, 0, len(snap.ordered))
	for _, name := range snap.ordered {
		d := snap.byName[name].descriptor
		if !d.Enabled {
			continue
		}
		if d.RequiresAPIKey && !d.HasCredentials {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FeatureEntry is one row of FeatureReport's output.
type FeatureEntry struct {
	Name     string
	Features []string
}

// FeatureReport returns the static feature vector of every enabled adapter,
// for the ENGINE_STATUS surface.
func (r *Registry) FeatureReport() []FeatureEntry {
	enabled := r.Enabled()
	out := make([]FeatureEntry, 0, len(enabled))
	for _, d := range enabled {
		out = append(out, FeatureEntry{Name: d.Name, Features: d.Features})
	}
	return out
}
