// Package embedding defines the contract for mapping article text to dense
// vectors. The rest of the engine depends only on the vector-in/vector-out
// contract and determinism, never on the model behind a provider.
package embedding

import (
	"context"
	"math"
)

// Vector is a fixed-dimension dense embedding.
type Vector []float64

// Cosine computes cosine similarity between two vectors. Mismatched
// dimensions or a zero-norm operand compare as 0 rather than erroring; a
// degenerate vector is simply dissimilar to everything.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean computes the arithmetic mean of a set of equal-dimension vectors.
// Returns nil for an empty set.
func Mean(vecs []Vector) Vector {
	if len(vecs) == 0 {
		return nil
	}
	out := make(Vector, len(vecs[0]))
	for _, v := range vecs {
		for i := range out {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(vecs))
	}
	return out
}

// Provider turns normalized article text into a vector. Implementations must
// be deterministic for identical input and safe for concurrent use.
type Provider interface {
	// Embed produces a vector, honoring ctx for cancellation and timeouts.
	// Returns ErrUnembeddable for text below the provider's minimum length;
	// such articles are excluded from clustering entirely, never given a
	// placeholder vector.
	Embed(ctx context.Context, text string) (Vector, error)

	// Dim returns the provider's fixed output dimension.
	Dim() int

	// Name identifies the backing model.
	Name() string
}
