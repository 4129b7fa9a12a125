// Package model contains the domain records passed between pipeline stages.
package model

import (
	"strings"
	"time"
)

// Article is a single ingested news article. An Article is created once by
// the ingestion layer and is read-only inside the engine, except for the
// Embedding field which is set exactly once before cluster assignment.
type Article struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Entity      string    `json:"entity"`
	PublishedAt time.Time `json:"published_at"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Sentiment   float64   `json:"sentiment"`
	Stance      string    `json:"stance,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`

	// Embedding is assigned exactly once after fingerprint screening.
	Embedding []float64 `json:"-"`
}

// SentimentBucket partitions the signed sentiment scalar for cluster rollups.
type SentimentBucket int

const (
	SentimentNegative SentimentBucket = iota
	SentimentNeutral
	SentimentPositive
	sentimentBucketCount
)

// neutralBand is the half-width of the neutral sentiment band.
const neutralBand = 0.1

// BucketFor maps a signed sentiment score to its bucket.
func BucketFor(score float64) SentimentBucket {
	switch {
	case score < -neutralBand:
		return SentimentNegative
	case score > neutralBand:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

// String implements fmt.Stringer.
func (b SentimentBucket) String() string {
	switch b {
	case SentimentNegative:
		return "negative"
	case SentimentPositive:
		return "positive"
	default:
		return "neutral"
	}
}

// NumSentimentBuckets is the size of per-cluster sentiment count arrays.
const NumSentimentBuckets = int(sentimentBucketCount)

// Stance labels an article's framing toward its entity.
type Stance int

const (
	StanceNeutral Stance = iota
	StanceCritical
	StanceSupportive
	stanceCount
)

// ParseStance maps a wire label to a Stance. Unknown or empty labels read
// as neutral; ingestion never rejects an article over its stance tag.
func ParseStance(s string) Stance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return StanceCritical
	case "supportive":
		return StanceSupportive
	default:
		return StanceNeutral
	}
}

// String implements fmt.Stringer.
func (s Stance) String() string {
	switch s {
	case StanceCritical:
		return "critical"
	case StanceSupportive:
		return "supportive"
	default:
		return "neutral"
	}
}

// NumStances is the size of per-cluster stance count arrays.
const NumStances = int(stanceCount)

// stanceDominance is the share of opinionated articles one side needs
// before a cluster's narrative stops reading as mixed.
const stanceDominance = 0.6

// ResolveStance reduces per-article stance counts to a cluster-level label.
// Clusters with no critical or supportive coverage read neutral; either side
// holding at least 60% of the opinionated articles names the cluster, and
// anything in between is mixed.
func ResolveStance(counts [NumStances]int) string {
	critical := counts[StanceCritical]
	supportive := counts[StanceSupportive]
	total := critical + supportive
	if total == 0 {
		return "neutral"
	}
	if float64(critical)/float64(total) >= stanceDominance {
		return "critical"
	}
	if float64(supportive)/float64(total) >= stanceDominance {
		return "supportive"
	}
	return "mixed"
}
