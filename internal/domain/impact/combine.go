package impact

import (
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// Score is an entity window's combined impact. Defined is false when no
// signal of any type arrived for the window, which is distinct from a
// genuine zero.
type Score struct {
	Value   float64
	Defined bool
}

// Combiner folds normalized per-type signals into one weighted score.
type Combiner struct {
	weights map[model.SignalType]float64
}

// NewCombiner creates a Combiner. Weights should sum to 1; missing types
// have their weight redistributed proportionally at combine time.
func NewCombiner(weights map[model.SignalType]float64) *Combiner {
	w := make(map[model.SignalType]float64, len(weights))
	for t, v := range weights {
		w[t] = v
	}
	return &Combiner{weights: w}
}

// Combine produces the impact score for one entity window from whatever
// normalized signals are present. Absent types do not drag the score toward
// zero: the weights of present types are renormalized to sum to 1.
func (c *Combiner) Combine(present map[model.SignalType]float64) Score {
	if len(present) == 0 {
		metrics.RecordImpactUndefined()
		return Score{}
	}

	var weightSum float64
	for t := range present {
		weightSum += c.weights[t]
	}
	if weightSum == 0 {
		// Only zero-weight types arrived; nothing meaningful to combine.
		metrics.RecordImpactUndefined()
		return Score{}
	}

	var score float64
	for t, v := range present {
		score += v * (c.weights[t] / weightSum)
	}
	return Score{Value: clamp01(score), Defined: true}
}
