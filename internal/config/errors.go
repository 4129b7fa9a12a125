package config

import "errors"

// ErrInvalidConfig wraps all startup validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")
