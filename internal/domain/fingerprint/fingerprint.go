// Package fingerprint computes exact and near-duplicate signatures for
// incoming articles. Fingerprinting is the cheap first-pass filter that runs
// before the costlier embedding step: exact content hashes catch syndicated
// copies, minhash signatures catch lightly edited ones.
package fingerprint

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// numHashes is the minhash signature width. 64 slots keep the Jaccard
	// estimate within a few percent while the signature stays one cache line
	// of uint64s.
	numHashes = 64

	// shingleSize is the word n-gram width used for shingling.
	shingleSize = 3
)

// boilerplateMarkers identify lines that are navigation or subscription
// chrome rather than article content. Matched case-insensitively against
// normalized lines before hashing.
var boilerplateMarkers = []string{
	"subscribe",
	"sign up for",
	"newsletter",
	"cookie",
	"all rights reserved",
	"advertisement",
	"read more:",
	"click here",
}

// Fingerprint is the computed signature for one article. It exists only as a
// value; it is never persisted independently of the article.
type Fingerprint struct {
	ExactHash uint64
	MinHash   [numHashes]uint64
	Shingles  int
}

// Service computes fingerprints. It is pure and safe for concurrent use.
type Service struct{}

// NewService returns a fingerprint service.
func NewService() *Service {
	return &Service{}
}

// Normalize prepares article text for hashing: lowercase, boilerplate lines
// stripped, whitespace collapsed to single spaces. Two articles differing
// only in incidental whitespace or casing normalize identically.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	var kept []string
	for _, line := range strings.Split(lower, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isBoilerplate(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}

func isBoilerplate(line string) bool {
	for _, marker := range boilerplateMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Compute normalizes text and builds its fingerprint.
func (s *Service) Compute(text string) Fingerprint {
	norm := Normalize(text)

	fp := Fingerprint{ExactHash: xxhash.Sum64String(norm)}
	for i := range fp.MinHash {
		fp.MinHash[i] = ^uint64(0)
	}

	words := strings.Fields(norm)
	if len(words) < shingleSize {
		return fp
	}

	for i := 0; i+shingleSize <= len(words); i++ {
		shingle := strings.Join(words[i:i+shingleSize], " ")
		h1 := xxhash.Sum64String(shingle)
		h2 := xxhash.Sum64String(shingle + "\x00")
		for slot := range fp.MinHash {
			// Two-hash scheme simulating numHashes independent hash functions.
			h := h1 + uint64(slot)*h2
			if h < fp.MinHash[slot] {
				fp.MinHash[slot] = h
			}
		}
		fp.Shingles++
	}
	return fp
}

// Similarity estimates the Jaccard similarity of the shingle sets behind two
// fingerprints. Signatures from sub-shingle-length texts compare as 0 unless
// their exact hashes match.
func Similarity(a, b Fingerprint) float64 {
	if a.ExactHash == b.ExactHash {
		return 1.0
	}
	if a.Shingles == 0 || b.Shingles == 0 {
		return 0
	}
	matches := 0
	for i := range a.MinHash {
		if a.MinHash[i] == b.MinHash[i] {
			matches++
		}
	}
	return float64(matches) / float64(numHashes)
}
