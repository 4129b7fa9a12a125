// Package entities holds the registry of tracked entities (companies). An
// article naming an entity outside the registry is rejected with an unknown
// entity signal, never silently dropped.
package entities

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entity is one tracked subject. TLow/THigh, when set, override the global
// classification thresholds for this entity.
type Entity struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Ticker string   `yaml:"ticker,omitempty"`
	TLow   *float64 `yaml:"t_low,omitempty"`
	THigh  *float64 `yaml:"t_high,omitempty"`
}

// Registry is the read-only entity lookup loaded once per batch.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Entity
}

// New creates a registry, optionally pre-seeded.
func New(seed ...Entity) *Registry {
	r := &Registry{byID: make(map[string]Entity, len(seed))}
	for _, e := range seed {
		r.byID[e.ID] = e
	}
	return r
}

// fileFormat mirrors the YAML layout:
//
//	entities:
//	  - id: acmecorp
//	    name: AcmeCorp
//	    ticker: ACME
type fileFormat struct {
	Entities []Entity `yaml:"entities"`
}

// LoadFile reads and validates an entity file, then swaps it in.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read entity registry: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse entity registry: %w", err)
	}

	byID := make(map[string]Entity, len(f.Entities))
	for _, e := range f.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity with empty id in %s", path)
		}
		if _, dup := byID[e.ID]; dup {
			return fmt.Errorf("duplicate entity id %q in %s", e.ID, path)
		}
		byID[e.ID] = e
	}

	r.mu.Lock()
	r.byID = byID
	r.mu.Unlock()
	return nil
}

// Lookup resolves an entity id.
func (r *Registry) Lookup(id string) (Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	return e, nil
}

// IDs returns all registered entity ids in stable order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
