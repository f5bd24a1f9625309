package tools

import (
	"sort"
	"sync"
)

// Registry is a name -> Descriptor map, per spec.md §4.1. Lookup, full-list,
// schema-only list, and is_auto_safe queries are exposed; registration is
// idempotent for a given name (last write wins).
//
// This used to wrap a separate generic internal/registry.BaseRegistry[T],
// mirroring kadirpekel-hector's pkg/registry.BaseRegistry used to back
// pkg/tools/registry.go, pkg/llms/registry.go, pkg/agent/registry.go, and
// several others. This module has only the one registry, so the generic
// wrapper bought nothing; it's folded in directly here instead.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Descriptor
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Descriptor)}
}

// Register stores d under name. A second Register for the same name
// overwrites the first (last write wins), per spec.md's "registration is
// idempotent for the same name" rule.
func (r *Registry) Register(name string, d Descriptor) error {
	if name == "" {
		return newRegistryError("Register", "tool name cannot be empty", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = d
	return nil
}

// Get returns the descriptor for name without the RegistryError wrapping
// Lookup applies; ok is false if name isn't registered.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[name]
	return d, ok
}

// Lookup returns the descriptor for name, or a RegistryError if absent.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	d, ok := r.Get(name)
	if !ok {
		return Descriptor{}, newRegistryError("Lookup", "tool not found: "+name, nil)
	}
	return d, nil
}

// IsAutoSafe reports whether name is registered and marked auto-safe.
// An unknown tool is treated as not auto-safe.
func (r *Registry) IsAutoSafe(name string) bool {
	d, ok := r.Get(name)
	return ok && d.AutoSafe
}

// Remove deletes the descriptor registered under name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; !ok {
		return newRegistryError("Remove", "tool not found: "+name, nil)
	}
	delete(r.items, name)
	return nil
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear removes every registered tool.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]Descriptor)
}

// List returns every registered Descriptor, sorted by name for
// deterministic iteration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]Descriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, r.items[name])
	}
	return descriptors
}

// Schemas returns the {name, description, schema} triples for every
// registered tool, suitable for sending to the completion endpoint's
// `tools` parameter.
func (r *Registry) Schemas() []ToolSchemaView {
	entries := r.List()
	views := make([]ToolSchemaView, 0, len(entries))
	for _, d := range entries {
		views = append(views, ToolSchemaView{
			Name:        d.Name,
			Description: d.Description,
			Schema:      d.Schema,
		})
	}
	return views
}

// ToolSchemaView is the wire-facing projection of a Descriptor, without
// its handler.
type ToolSchemaView struct {
	Name        string
	Description string
	Schema      Schema
}
