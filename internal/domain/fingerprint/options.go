package fingerprint

// IndexOption applies a configuration option to the Index.
type IndexOption func(*Index)

// WithMaxSize bounds the number of remembered signatures.
func WithMaxSize(size int) IndexOption {
	return func(x *Index) {
		if size > 0 {
			x.maxSize = size
		}
	}
}

// WithNearDupThreshold sets the minhash similarity above which two articles
// are treated as duplicates regardless of their exact hashes.
func WithNearDupThreshold(threshold float64) IndexOption {
	return func(x *Index) {
		if threshold > 0 && threshold <= 1 {
			x.threshold = threshold
		}
	}
}
