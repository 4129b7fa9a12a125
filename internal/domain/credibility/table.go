// Package credibility maps source identifiers to credibility weights in
// [0,1]. The table is refreshed out-of-band and read-only to the rest of the
// engine.
package credibility

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultSourceWeight = 0.5

// Table holds source weights. Reload swaps the whole map atomically, so
// readers never observe a half-loaded table.
type Table struct {
	mu            sync.RWMutex
	weights       map[string]float64
	defaultWeight float64
	path          string
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithDefaultWeight sets the weight returned for unknown sources.
func WithDefaultWeight(w float64) Option {
	return func(t *Table) {
		if w >= 0 && w <= 1 {
			t.defaultWeight = w
		}
	}
}

// WithWeights seeds the table directly, bypassing file loading. Intended for
// tests and embedded deployments.
func WithWeights(weights map[string]float64) Option {
	return func(t *Table) {
		m := make(map[string]float64, len(weights))
		for k, v := range weights {
			m[k] = v
		}
		t.weights = m
	}
}

// New creates a credibility table.
func New(opts ...Option) *Table {
	t := &Table{
		weights:       make(map[string]float64),
		defaultWeight: defaultSourceWeight,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// fileFormat mirrors the YAML layout:
//
//	sources:
//	  reuters.com: 0.95
//	  examplewire.net: 0.3
type fileFormat struct {
	Sources map[string]float64 `yaml:"sources"`
}

// LoadFile reads and validates a weights file, then swaps it in.
func (t *Table) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read credibility table: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse credibility table: %w", err)
	}
	for source, w := range f.Sources {
		if w < 0 || w > 1 {
			return fmt.Errorf("credibility weight for %q out of range: %v", source, w)
		}
	}

	t.mu.Lock()
	t.weights = f.Sources
	t.path = path
	t.mu.Unlock()
	return nil
}

// Reload re-reads the file last loaded with LoadFile.
func (t *Table) Reload() error {
	t.mu.RLock()
	path := t.path
	t.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no credibility file to reload")
	}
	return t.LoadFile(path)
}

// Weight returns the credibility weight for a source, or the default for
// sources the table does not know.
func (t *Table) Weight(source string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if w, ok := t.weights[source]; ok {
		return w
	}
	return t.defaultWeight
}

// Size returns the number of known sources.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.weights)
}
