package embedding

import "errors"

// Sentinel kinds for embedding errors.
var (
	// ErrUnembeddable marks text too short or empty to embed. Input error:
	// reject the article, continue the batch.
	ErrUnembeddable = errors.New("text cannot be embedded")

	// ErrProvider marks a provider-side failure (HTTP error, bad response).
	// Resource error: defer the article to the next batch.
	ErrProvider = errors.New("embedding provider failed")
)
