package impact

import (
	"sync"

	"github.com/newslens/hypetrack/internal/domain/model"
)

// Ledger holds the latest normalized signal per (entity, window, type). The
// scoring engine joins against it when a window closes; a later observation
// of the same type for the same window replaces the earlier one.
type Ledger struct {
	mu      sync.RWMutex
	byKey   map[ledgerKey]map[model.SignalType]float64
	windows map[string][]model.Window
}

type ledgerKey struct {
	entity string
	window string
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byKey:   make(map[ledgerKey]map[model.SignalType]float64),
		windows: make(map[string][]model.Window),
	}
}

// Record stores an already-normalized signal.
func (l *Ledger) Record(sig *model.ImpactSignal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{entity: sig.Entity, window: sig.Window.Key()}
	m, ok := l.byKey[key]
	if !ok {
		m = make(map[model.SignalType]float64, 3)
		l.byKey[key] = m
		l.windows[sig.Entity] = append(l.windows[sig.Entity], sig.Window)
	}
	m[sig.Type] = sig.Normalized
}

// Present returns the normalized signals recorded for an entity window. The
// second return is false when no signal of any type arrived, which callers
// must treat as undefined impact, not zero.
func (l *Ledger) Present(entity string, w model.Window) (map[model.SignalType]float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.byKey[ledgerKey{entity: entity, window: w.Key()}]
	if !ok {
		return nil, false
	}
	out := make(map[model.SignalType]float64, len(m))
	for t, v := range m {
		out[t] = v
	}
	return out, true
}

// Windows lists the windows with at least one signal for the entity, in
// arrival order.
func (l *Ledger) Windows(entity string) []model.Window {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Window(nil), l.windows[entity]...)
}
