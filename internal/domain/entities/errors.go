package entities

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrUnknownEntity = errors.New("unknown entity")
)
