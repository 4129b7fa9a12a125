package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// Store holds all clusters, sharded by entity. Each entity has its own
// mutex, so assignment for AAPL never blocks assignment for TSLA, while two
// workers holding AAPL articles serialize.
type Store struct {
	mu     sync.RWMutex
	shards map[string]*entityShard
	owner  map[string]string // cluster id -> entity

	snapshot         atomic.Pointer[Snapshot]
	snapshotInterval time.Duration

	log      logger.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

type entityShard struct {
	mu       sync.Mutex
	clusters map[string]*Cluster
}

// New creates a Store and publishes an initial empty snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		shards:           make(map[string]*entityShard),
		owner:            make(map[string]string),
		snapshotInterval: defaultSnapshotInterval,
		log:              logger.Named("repository"),
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(emptySnapshot())
	return s
}

// Start launches the periodic snapshot publisher.
func (s *Store) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.PublishSnapshot()
			}
		}
	}()
}

// Stop halts the snapshot publisher and publishes one final snapshot so
// readers observe the last writes.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.PublishSnapshot()
}

func (s *Store) shard(entity string) *entityShard {
	s.mu.RLock()
	sh, ok := s.shards[entity]
	s.mu.RUnlock()
	if ok {
		return sh
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok = s.shards[entity]; ok {
		return sh
	}
	sh = &entityShard{clusters: make(map[string]*Cluster)}
	s.shards[entity] = sh
	return sh
}

// WithEntity runs fn while holding the entity's exclusive lock. All cluster
// mutation for an entity happens inside fn via the EntityView.
func (s *Store) WithEntity(entity string, fn func(v *EntityView) error) error {
	start := time.Now()
	sh := s.shard(entity)
	sh.mu.Lock()
	defer func() {
		sh.mu.Unlock()
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()
	return fn(&EntityView{store: s, entity: entity, shard: sh})
}

// Resolve follows forwarding pointers from id to a live cluster id. It
// returns the terminal id and the number of hops taken.
func (s *Store) Resolve(id string) (string, int, error) {
	hops := 0
	cur := id
	for {
		s.mu.RLock()
		entity, ok := s.owner[cur]
		s.mu.RUnlock()
		if !ok {
			return "", hops, fmt.Errorf("%w: %s", ErrNotFound, cur)
		}
		sh := s.shard(entity)
		sh.mu.Lock()
		c, ok := sh.clusters[cur]
		if !ok {
			sh.mu.Unlock()
			return "", hops, fmt.Errorf("%w: %s", ErrNotFound, cur)
		}
		next := c.ForwardTo
		sh.mu.Unlock()
		if next == "" {
			return cur, hops, nil
		}
		cur = next
		hops++
	}
}

// EntityIDs returns the entities that currently have a shard.
func (s *Store) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.shards))
	for e := range s.shards {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// EntityView exposes one entity's clusters to code running under the
// entity lock. It must not escape the WithEntity callback.
type EntityView struct {
	store  *Store
	entity string
	shard  *entityShard
}

// Entity returns the entity this view is locked on.
func (v *EntityView) Entity() string { return v.entity }

// Active returns the entity's active, non-corrupt clusters.
func (v *EntityView) Active() []*Cluster {
	out := make([]*Cluster, 0, len(v.shard.clusters))
	for _, c := range v.shard.clusters {
		if c.State == StateActive && !c.Corrupt {
			out = append(out, c)
		}
	}
	return out
}

// All returns every cluster for the entity, including retired ones.
func (v *EntityView) All() []*Cluster {
	out := make([]*Cluster, 0, len(v.shard.clusters))
	for _, c := range v.shard.clusters {
		out = append(out, c)
	}
	return out
}

// Get returns the cluster with the given id within this entity.
func (v *EntityView) Get(id string) (*Cluster, bool) {
	c, ok := v.shard.clusters[id]
	return c, ok
}

// Add registers a freshly created cluster.
func (v *EntityView) Add(c *Cluster) error {
	if c.Entity != v.entity {
		return fmt.Errorf("%w: cluster %s is %s, view is %s", ErrEntityMismatch, c.ID, c.Entity, v.entity)
	}
	v.shard.clusters[c.ID] = c
	v.store.mu.Lock()
	v.store.owner[c.ID] = v.entity
	v.store.mu.Unlock()
	return nil
}

// Append adds a member to an existing cluster of this entity.
func (v *EntityView) Append(id string, m Member, vec embedding.Vector, now time.Time) error {
	c, ok := v.shard.clusters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := c.addMember(m, vec, now); err != nil {
		return err
	}
	return nil
}

// Verify runs the centroid/member-count consistency check on one cluster.
// A failing cluster is frozen in place and reported.
func (v *EntityView) Verify(id string) error {
	c, ok := v.shard.clusters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := c.verify(); err != nil {
		metrics.RecordCorruptCluster()
		v.store.log.Error(context.Background(), "cluster frozen after failed consistency check",
			logger.String("cluster", c.ID),
			logger.String("entity", c.Entity),
			logger.Error(err))
		return err
	}
	return nil
}

// Transition moves a cluster along active -> dormant -> archived.
func (v *EntityView) Transition(id string, to State, now time.Time) error {
	c, ok := v.shard.clusters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.Corrupt {
		return fmt.Errorf("%w: %s", ErrClusterCorrupt, id)
	}
	valid := false
	switch {
	case c.State == StateActive && to == StateDormant:
		valid = true
	case c.State == StateDormant && to == StateArchived:
		valid = true
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.State, to)
	}
	from := c.State
	c.State = to
	c.UpdatedAt = now
	metrics.RecordTransition(string(from), string(to))
	return nil
}

// Merge folds the loser cluster into the winner. The winner keeps its id;
// membership moves over, the centroid is recomputed from the union member
// set, and the loser is retired with a forwarding pointer.
func (v *EntityView) Merge(winnerID, loserID string, now time.Time) error {
	if winnerID == loserID {
		return fmt.Errorf("%w: cannot merge cluster into itself", ErrEntityMismatch)
	}
	w, ok := v.shard.clusters[winnerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, winnerID)
	}
	l, ok := v.shard.clusters[loserID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, loserID)
	}
	if w.Corrupt || l.Corrupt {
		return fmt.Errorf("%w: refusing merge involving frozen cluster", ErrClusterCorrupt)
	}
	if w.State != StateActive || l.State != StateActive {
		return fmt.Errorf("%w: merge requires both clusters active", ErrNotActive)
	}

	type pair struct {
		m Member
		e embedding.Vector
	}
	union := make([]pair, 0, len(w.Members)+len(l.Members))
	for i := range w.Members {
		union = append(union, pair{w.Members[i], w.embeddings[i]})
	}
	for i := range l.Members {
		union = append(union, pair{l.Members[i], l.embeddings[i]})
	}
	sort.SliceStable(union, func(i, j int) bool {
		return union[i].m.PublishedAt.Before(union[j].m.PublishedAt)
	})

	w.Members = w.Members[:0]
	w.embeddings = w.embeddings[:0]
	var counts [model.NumSentimentBuckets]int
	var stances [model.NumStances]int
	var coverage float64
	vecs := make([]embedding.Vector, 0, len(union))
	for _, p := range union {
		w.Members = append(w.Members, p.m)
		w.embeddings = append(w.embeddings, p.e)
		counts[model.BucketFor(p.m.Sentiment)]++
		stances[p.m.Stance]++
		coverage += p.m.Weight
		vecs = append(vecs, p.e)
	}
	w.SentimentCounts = counts
	w.StanceCounts = stances
	w.CoverageWeight = coverage
	w.Centroid = embedding.Mean(vecs)
	w.sum = make(embedding.Vector, len(w.Centroid))
	for _, e := range vecs {
		for i := range e {
			w.sum[i] += e[i]
		}
	}
	if l.CreatedAt.Before(w.CreatedAt) {
		w.CreatedAt = l.CreatedAt
	}
	w.UpdatedAt = now
	if l.LastAssignedAt.After(w.LastAssignedAt) {
		w.LastAssignedAt = l.LastAssignedAt
	}

	l.Members = nil
	l.embeddings = nil
	l.sum = nil
	l.Centroid = nil
	l.SentimentCounts = [model.NumSentimentBuckets]int{}
	l.StanceCounts = [model.NumStances]int{}
	l.CoverageWeight = 0
	l.State = StateRetired
	l.ForwardTo = winnerID
	l.UpdatedAt = now

	metrics.RecordClusterMerge()
	return nil
}
