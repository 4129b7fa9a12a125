// Package impact turns raw external signals (search interest, market moves,
// verified event counts) into comparable [0,1] values and combines them into
// a single impact score per entity window.
package impact

import (
	"math"
	"sync"

	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// Normalizer scales raw signal values into [0,1] against a trailing
// per-entity, per-type baseline of recent observations.
type Normalizer struct {
	mu       sync.Mutex
	history  map[historyKey]*ring
	capacity int
}

type historyKey struct {
	entity string
	typ    model.SignalType
}

// ring is a fixed-capacity trailing window of raw observations.
type ring struct {
	vals []float64
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{vals: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	r.vals[r.next] = v
	r.next = (r.next + 1) % len(r.vals)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) minMax() (min, max float64, n int) {
	n = r.next
	if r.full {
		n = len(r.vals)
	}
	if n == 0 {
		return 0, 0, 0
	}
	min, max = r.vals[0], r.vals[0]
	for i := 1; i < n; i++ {
		if r.vals[i] < min {
			min = r.vals[i]
		}
		if r.vals[i] > max {
			max = r.vals[i]
		}
	}
	return min, max, n
}

func (r *ring) maxAbs() float64 {
	n := r.next
	if r.full {
		n = len(r.vals)
	}
	var max float64
	for i := 0; i < n; i++ {
		if a := math.Abs(r.vals[i]); a > max {
			max = a
		}
	}
	return max
}

// NewNormalizer creates a Normalizer with the given trailing window depth.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		history:  make(map[historyKey]*ring),
		capacity: defaultBaselineWindows,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize records the signal's raw value into its trailing baseline and
// fills in the Normalized field. The current observation is part of its own
// baseline, so output is always in [0,1].
func (n *Normalizer) Normalize(sig *model.ImpactSignal) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := historyKey{entity: sig.Entity, typ: sig.Type}
	r, ok := n.history[key]
	if !ok {
		r = newRing(n.capacity)
		n.history[key] = r
	}
	r.push(sig.Raw)

	var norm float64
	switch sig.Type {
	case model.SignalMarketMovement:
		// Magnitude matters, direction does not; log damping keeps a
		// single extreme move from flattening everything after it.
		if max := r.maxAbs(); max > 0 {
			norm = math.Log1p(math.Abs(sig.Raw)) / math.Log1p(max)
		}
	default:
		min, max, cnt := r.minMax()
		switch {
		case cnt < 2 || max == min:
			// Not enough history to spread values; a lone observation
			// sits mid-scale rather than claiming the extremes.
			norm = 0.5
		default:
			norm = (sig.Raw - min) / (max - min)
		}
	}

	norm = clamp01(norm)
	sig.Normalized = norm
	metrics.RecordSignalNormalized(string(sig.Type))
	return norm
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
