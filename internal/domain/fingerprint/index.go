package fingerprint

import (
	"sync"
)

// DuplicateKind labels how a duplicate was detected.
type DuplicateKind string

const (
	// DupExact means the normalized content hashes matched.
	DupExact DuplicateKind = "exact"
	// DupNear means the minhash similarity crossed the near-dup threshold
	// even though the exact hashes differ.
	DupNear DuplicateKind = "near"
)

// Decision reports the outcome of screening one article.
type Decision struct {
	Duplicate bool
	Kind      DuplicateKind
	Of        string // article id the duplicate matched
}

// entry is one remembered signature.
type entry struct {
	id string
	fp Fingerprint
}

// Index remembers recently seen fingerprints and answers duplicate queries.
// It is bounded: once full, the oldest signatures are evicted, so very old
// articles can no longer shadow new ones. Duplicate decisions are returned to
// the caller; the index never deletes anything upstream.
type Index struct {
	mu      sync.Mutex
	byExact map[uint64]string
	ring    []entry
	next    int
	full    bool

	maxSize   int
	threshold float64
}

// NewIndex creates a bounded fingerprint index.
func NewIndex(opts ...IndexOption) *Index {
	idx := &Index{
		maxSize:   50000,
		threshold: 0.9,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.byExact = make(map[uint64]string, idx.maxSize)
	idx.ring = make([]entry, idx.maxSize)
	return idx
}

// SeenAndRecord atomically screens a fingerprint against everything the index
// remembers and records it if unique. The later article always loses: when a
// match is found the incoming id is reported as a duplicate of the stored one
// and is not recorded.
func (x *Index) SeenAndRecord(id string, fp Fingerprint) Decision {
	x.mu.Lock()
	defer x.mu.Unlock()

	if of, ok := x.byExact[fp.ExactHash]; ok {
		return Decision{Duplicate: true, Kind: DupExact, Of: of}
	}

	// Near-duplicate scan over the remembered window. Forgotten slots keep
	// an empty id until the ring reclaims them.
	n := x.next
	if x.full {
		n = len(x.ring)
	}
	for i := 0; i < n; i++ {
		if x.ring[i].id == "" {
			continue
		}
		if Similarity(x.ring[i].fp, fp) >= x.threshold {
			return Decision{Duplicate: true, Kind: DupNear, Of: x.ring[i].id}
		}
	}

	// Record, evicting the slot's previous occupant if the ring wrapped.
	if x.full {
		delete(x.byExact, x.ring[x.next].fp.ExactHash)
	}
	x.ring[x.next] = entry{id: id, fp: fp}
	x.byExact[fp.ExactHash] = id
	x.next++
	if x.next == len(x.ring) {
		x.next = 0
		x.full = true
	}
	return Decision{}
}

// Forget withdraws a previously recorded fingerprint so the same article can
// be screened again later, typically after its processing was deferred. Only
// the exact id/fingerprint pair is withdrawn; a hash recorded since by a
// different article stays.
func (x *Index) Forget(id string, fp Fingerprint) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if of, ok := x.byExact[fp.ExactHash]; ok && of == id {
		delete(x.byExact, fp.ExactHash)
	}
	for i := range x.ring {
		if x.ring[i].id == id && x.ring[i].fp.ExactHash == fp.ExactHash {
			x.ring[i] = entry{}
			return
		}
	}
}

// Size returns the number of signatures currently remembered.
func (x *Index) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.full {
		return len(x.ring)
	}
	return x.next
}
