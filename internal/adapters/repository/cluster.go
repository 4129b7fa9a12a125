// Package repository implements the cluster store: an in-memory arena of
// event clusters keyed by (entity, cluster id). All mutation goes through a
// per-entity exclusive lock, so two concurrently processed articles for the
// same entity can never interleave their centroid updates.
package repository

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/model"
)

// State is a cluster's lifecycle state.
type State string

const (
	// StateActive clusters accept new assignments.
	StateActive State = "active"
	// StateDormant clusters accrued no members for the inactivity window;
	// they still score for already-accrued windows but accept no new members.
	StateDormant State = "dormant"
	// StateArchived is terminal: no further mutation of any kind.
	StateArchived State = "archived"
	// StateRetired marks a merge loser; its id forwards to the survivor.
	StateRetired State = "retired"
)

// centroidTolerance bounds acceptable floating-point drift between the
// stored centroid and the recomputed member mean.
const centroidTolerance = 1e-9

// Member is one article's membership in a cluster. The embedding copy lets
// merges recompute centroids from the full member set and lets invariant
// checks recompute the member mean.
type Member struct {
	ArticleID   string
	Source      string
	PublishedAt time.Time
	Sentiment   float64
	Stance      model.Stance
	Weight      float64
}

// Cluster is one event cluster. Fields are mutated only while the owning
// entity's lock is held; external readers see snapshot copies.
type Cluster struct {
	ID        string
	Entity    string
	CreatedAt time.Time
	UpdatedAt time.Time
	// LastAssignedAt is the last time a member arrived; unlike UpdatedAt it
	// is untouched by state transitions, so inactivity clocks keep running.
	LastAssignedAt time.Time
	State          State
	ForwardTo      string
	Corrupt        bool

	Centroid embedding.Vector
	Members  []Member

	SentimentCounts [model.NumSentimentBuckets]int
	StanceCounts    [model.NumStances]int
	CoverageWeight  float64

	// sum is the running component-wise sum of member embeddings; the
	// centroid is always sum/len(Members). Kept alongside the per-member
	// vectors so a single assignment stays O(dim).
	sum        embedding.Vector
	embeddings []embedding.Vector
}

// NewCluster creates an active cluster seeded with its first member.
func NewCluster(id, entity string, first Member, vec embedding.Vector, now time.Time) *Cluster {
	c := &Cluster{
		ID:             id,
		Entity:         entity,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAssignedAt: now,
		State:          StateActive,
	}
	c.sum = append(embedding.Vector(nil), vec...)
	c.Centroid = append(embedding.Vector(nil), vec...)
	c.embeddings = []embedding.Vector{append(embedding.Vector(nil), vec...)}
	c.Members = []Member{first}
	c.SentimentCounts[model.BucketFor(first.Sentiment)]++
	c.StanceCounts[first.Stance]++
	c.CoverageWeight = first.Weight
	return c
}

// addMember appends a member and updates the centroid as an incremental
// running mean. Count and centroid change together under the entity lock,
// never separately.
func (c *Cluster) addMember(m Member, vec embedding.Vector, now time.Time) error {
	if c.Corrupt {
		return fmt.Errorf("%w: %s", ErrClusterCorrupt, c.ID)
	}
	if c.State != StateActive {
		return fmt.Errorf("%w: %s is %s", ErrNotActive, c.ID, c.State)
	}
	if len(vec) != len(c.sum) {
		return fmt.Errorf("%w: got dim %d, cluster has %d", ErrDimMismatch, len(vec), len(c.sum))
	}

	c.Members = append(c.Members, m)
	c.embeddings = append(c.embeddings, append(embedding.Vector(nil), vec...))
	for i := range c.sum {
		c.sum[i] += vec[i]
	}
	n := float64(len(c.Members))
	for i := range c.Centroid {
		c.Centroid[i] = c.sum[i] / n
	}
	c.SentimentCounts[model.BucketFor(m.Sentiment)]++
	c.StanceCounts[m.Stance]++
	c.CoverageWeight += m.Weight
	c.UpdatedAt = now
	c.LastAssignedAt = now
	return nil
}

// verify recomputes the member mean and checks it against the stored
// centroid. A violation freezes the cluster.
func (c *Cluster) verify() error {
	if len(c.Members) != len(c.embeddings) {
		c.Corrupt = true
		return fmt.Errorf("%w: %s member/embedding count mismatch", ErrClusterCorrupt, c.ID)
	}
	if len(c.Members) == 0 {
		return nil
	}
	mean := embedding.Mean(c.embeddings)
	for i := range mean {
		if math.Abs(mean[i]-c.Centroid[i]) > centroidTolerance {
			c.Corrupt = true
			return fmt.Errorf("%w: %s centroid drifted from member mean", ErrClusterCorrupt, c.ID)
		}
	}
	return nil
}

// CoverageInWindow sums member credibility weights for members published
// inside the window.
func (c *Cluster) CoverageInWindow(w model.Window) float64 {
	var total float64
	for _, m := range c.Members {
		if w.Contains(m.PublishedAt) {
			total += m.Weight
		}
	}
	return total
}

// TopSources returns the n sources contributing the most credibility weight.
func (c *Cluster) TopSources(n int) []model.SourceWeight {
	bySource := make(map[string]float64)
	for _, m := range c.Members {
		bySource[m.Source] += m.Weight
	}
	out := make([]model.SourceWeight, 0, len(bySource))
	for src, w := range bySource {
		out = append(out, model.SourceWeight{Source: src, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Source < out[j].Source
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Stance reduces the per-member stance counts to the cluster-level label.
func (c *Cluster) Stance() string {
	return model.ResolveStance(c.StanceCounts)
}

// WeightedMeanSentiment returns the credibility-weighted mean of member
// sentiment scores, or 0 for an empty cluster.
func (c *Cluster) WeightedMeanSentiment() float64 {
	var sum, weight float64
	for _, m := range c.Members {
		sum += m.Sentiment * m.Weight
		weight += m.Weight
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}
