// Package identity provides the per-session identity map: one live Go value
// per (label, identity) pair. Reads that hit the map return the already
// managed instance instead of materializing a duplicate, so two lookups of
// the same node observe each other's in-memory mutations.
package identity

import "sync"

type key struct {
	label string
	id    int64
}

// Map caches managed entities by label and store identity. Safe for
// concurrent use.
type Map struct {
	mu      sync.RWMutex
	entries map[key]interface{}
}

// NewMap creates an empty identity map.
func NewMap() *Map {
	return &Map{entries: make(map[key]interface{})}
}

// Get returns the managed instance for (label, id), if any.
func (m *Map) Get(label string, id int64) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key{label, id}]
	return e, ok
}

// Put records entity as the managed instance for (label, id), replacing any
// previous entry.
func (m *Map) Put(label string, id int64, entity interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key{label, id}] = entity
}

// Remove evicts the entry for (label, id). Removing an absent entry is a
// no-op.
func (m *Map) Remove(label string, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key{label, id})
}

// Len reports the number of managed entries.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear drops every entry.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[key]interface{})
}
