package repository

import "errors"

var (
	// ErrNotFound indicates no cluster with the given id exists.
	ErrNotFound = errors.New("cluster not found")
	// ErrClusterCorrupt indicates a cluster failed an internal consistency
	// check and is frozen against further mutation.
	ErrClusterCorrupt = errors.New("cluster corrupt")
	// ErrNotActive indicates a mutation was attempted on a non-active cluster.
	ErrNotActive = errors.New("cluster not active")
	// ErrDimMismatch indicates an embedding's dimensionality does not match
	// the cluster's.
	ErrDimMismatch = errors.New("embedding dimension mismatch")
	// ErrBadTransition indicates a lifecycle transition that violates the
	// active -> dormant -> archived ordering.
	ErrBadTransition = errors.New("invalid state transition")
	// ErrEntityMismatch indicates an operation spanning clusters of
	// different entities.
	ErrEntityMismatch = errors.New("clusters belong to different entities")
	// ErrForwarded indicates the id belongs to a retired cluster; callers
	// should resolve through the forwarding pointer.
	ErrForwarded = errors.New("cluster id is forwarded")
)
