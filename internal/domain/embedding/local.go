package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Default local provider configuration.
const (
	defaultLocalDim      = 64
	defaultLocalMinChars = 20
)

// LocalProvider is a deterministic, dependency-free provider: a hashed
// bag-of-words projection. Texts sharing vocabulary land near each other,
// which is all the clustering tests and offline runs need. Not a semantic
// model; production deployments use HTTPProvider.
type LocalProvider struct {
	dim      int
	minChars int
}

// LocalOption applies a configuration option to the LocalProvider.
type LocalOption func(*LocalProvider)

// WithLocalDim sets the output dimension.
func WithLocalDim(dim int) LocalOption {
	return func(p *LocalProvider) {
		if dim > 0 {
			p.dim = dim
		}
	}
}

// WithLocalMinChars sets the minimum text length accepted for embedding.
func WithLocalMinChars(n int) LocalOption {
	return func(p *LocalProvider) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// NewLocalProvider creates a deterministic local provider.
func NewLocalProvider(opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		dim:      defaultLocalDim,
		minChars: defaultLocalMinChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) Dim() int     { return p.dim }
func (p *LocalProvider) Name() string { return "local-hash" }

// Embed projects normalized tokens into a fixed-dimension vector and
// L2-normalizes the result. Deterministic for identical input.
func (p *LocalProvider) Embed(_ context.Context, text string) (Vector, error) {
	if len(text) < p.minChars {
		return nil, fmt.Errorf("%w: %d chars below minimum %d", ErrUnembeddable, len(text), p.minChars)
	}

	vec := make(Vector, p.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := xxhash.Sum64String(tok)
		idx := int(h % uint64(p.dim))
		// High bit picks the sign so token collisions do not all pile up
		// positive.
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return nil, fmt.Errorf("%w: no tokens", ErrUnembeddable)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
