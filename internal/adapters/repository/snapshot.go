package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// ClusterSummary is an immutable copy of a cluster's queryable state.
type ClusterSummary struct {
	ID              string                         `json:"id"`
	Entity          string                         `json:"entity"`
	State           string                         `json:"state"`
	CreatedAt       time.Time                      `json:"createdAt"`
	UpdatedAt       time.Time                      `json:"updatedAt"`
	MemberCount     int                            `json:"memberCount"`
	MemberIDs       []string                       `json:"memberIds"`
	TopSources      []model.SourceWeight           `json:"topSources"`
	SentimentCounts [model.NumSentimentBuckets]int `json:"sentimentCounts"`
	StanceCounts    [model.NumStances]int          `json:"stanceCounts"`
	Stance          string                         `json:"stance"`
	CoverageWeight  float64                        `json:"coverageWeight"`
	ForwardTo       string                         `json:"forwardTo,omitempty"`
	Corrupt         bool                           `json:"corrupt,omitempty"`
}

// Snapshot is a point-in-time immutable view of the whole store. Readers
// hold it without any locking.
type Snapshot struct {
	TakenAt      time.Time
	byEntity     map[string][]ClusterSummary
	byID         map[string]ClusterSummary
	totalByState map[State]int
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		TakenAt:      time.Now().UTC(),
		byEntity:     make(map[string][]ClusterSummary),
		byID:         make(map[string]ClusterSummary),
		totalByState: make(map[State]int),
	}
}

// ForEntity returns the entity's cluster summaries, newest first.
func (s *Snapshot) ForEntity(entity string) []ClusterSummary {
	return s.byEntity[entity]
}

// ByID looks up a summary by cluster id; forwarding is not followed here.
func (s *Snapshot) ByID(id string) (ClusterSummary, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// CountByState returns the number of clusters in the given state.
func (s *Snapshot) CountByState(st State) int { return s.totalByState[st] }

// Entities returns the entities present in the snapshot, sorted.
func (s *Snapshot) Entities() []string {
	out := make([]string, 0, len(s.byEntity))
	for e := range s.byEntity {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func summarize(c *Cluster) ClusterSummary {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ArticleID
	}
	return ClusterSummary{
		ID:              c.ID,
		Entity:          c.Entity,
		State:           string(c.State),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		MemberCount:     len(c.Members),
		MemberIDs:       ids,
		TopSources:      c.TopSources(5),
		SentimentCounts: c.SentimentCounts,
		StanceCounts:    c.StanceCounts,
		Stance:          c.Stance(),
		CoverageWeight:  c.CoverageWeight,
		ForwardTo:       c.ForwardTo,
		Corrupt:         c.Corrupt,
	}
}

// PublishSnapshot builds a fresh immutable snapshot and swaps it in. Each
// shard's lock is held only while its own clusters are copied.
func (s *Store) PublishSnapshot() {
	start := time.Now()
	snap := emptySnapshot()

	s.mu.RLock()
	entities := make([]string, 0, len(s.shards))
	for e := range s.shards {
		entities = append(entities, e)
	}
	s.mu.RUnlock()

	for _, entity := range entities {
		sh := s.shard(entity)
		sh.mu.Lock()
		sums := make([]ClusterSummary, 0, len(sh.clusters))
		for _, c := range sh.clusters {
			cs := summarize(c)
			sums = append(sums, cs)
			snap.byID[cs.ID] = cs
			snap.totalByState[c.State]++
		}
		sh.mu.Unlock()
		sort.Slice(sums, func(i, j int) bool {
			if !sums[i].UpdatedAt.Equal(sums[j].UpdatedAt) {
				return sums[i].UpdatedAt.After(sums[j].UpdatedAt)
			}
			return sums[i].ID < sums[j].ID
		})
		snap.byEntity[entity] = sums
	}

	s.snapshot.Store(snap)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.RecordSnapshotDuration(elapsed)
	metrics.UpdateRepositoryEntities(len(snap.byEntity))
	metrics.UpdateRepositoryClusters(len(snap.byID))
	for _, st := range []State{StateActive, StateDormant, StateArchived, StateRetired} {
		metrics.UpdateClusters(string(st), snap.totalByState[st])
	}
	s.log.Debug(context.Background(), "snapshot published",
		logger.Int("clusters", len(snap.byID)),
		logger.Int("entities", len(snap.byEntity)),
		logger.Float64("elapsedMs", elapsed))
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Lookup finds a cluster summary by id, following forwarding pointers. It
// refreshes nothing: the result reflects the latest published snapshot,
// except that resolution itself consults live forwarding state.
func (s *Store) Lookup(id string) (ClusterSummary, int, error) {
	resolved, hops, err := s.Resolve(id)
	if err != nil {
		return ClusterSummary{}, hops, err
	}
	snap := s.Snapshot()
	if cs, ok := snap.ByID(resolved); ok {
		return cs, hops, nil
	}
	// The cluster was created after the last snapshot; read it live.
	s.mu.RLock()
	entity, ok := s.owner[resolved]
	s.mu.RUnlock()
	if !ok {
		return ClusterSummary{}, hops, fmt.Errorf("%w: %s", ErrNotFound, resolved)
	}
	var cs ClusterSummary
	err = s.WithEntity(entity, func(v *EntityView) error {
		c, ok := v.Get(resolved)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, resolved)
		}
		cs = summarize(c)
		return nil
	})
	return cs, hops, err
}
