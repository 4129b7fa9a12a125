package impact

const defaultBaselineWindows = 8

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithBaselineWindows sets how many trailing observations each (entity,
// signal type) baseline retains.
func WithBaselineWindows(n int) NormalizerOption {
	return func(nm *Normalizer) {
		if n > 0 {
			nm.capacity = n
		}
	}
}
