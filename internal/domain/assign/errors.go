package assign

import "errors"

// ErrNoEmbedding indicates an article reached assignment without a vector.
var ErrNoEmbedding = errors.New("article has no embedding")
