package model

import "sync"

// MapRegistry is a simple in-memory Registry keyed by model name and by
// the collection path each model's Collection is bound to. It is the
// registry implementation this module ships; a host application with its
// own model loader can supply any other Registry implementation instead.
type MapRegistry struct {
	mu           sync.RWMutex
	byName       map[string]*Model
	byCollection map[string]*Model
}

// NewMapRegistry builds an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{
		byName:       make(map[string]*Model),
		byCollection: make(map[string]*Model),
	}
}

// Register adds m to the registry, indexed by name and by
// collectionPath (the store-facing path its bound Collection uses).
func (r *MapRegistry) Register(m *Model, collectionPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[m.Name] = m
	if collectionPath != "" {
		r.byCollection[collectionPath] = m
	}
}

// GetModel implements Registry.
func (r *MapRegistry) GetModel(name, plugin string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := name
	if plugin != "" {
		key = plugin + "::" + name
	}
	if m, ok := r.byName[key]; ok {
		return m, nil
	}
	if m, ok := r.byName[name]; ok {
		return m, nil
	}
	return nil, &ErrModelNotFound{Name: name, Plugin: plugin}
}

// GetModelByCollectionName implements Registry.
func (r *MapRegistry) GetModelByCollectionName(path string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.byCollection[path]; ok {
		return m, nil
	}
	return nil, &ErrModelNotFound{Name: path}
}
