// Package assign implements incremental cluster assignment: each embedded
// article is compared against the active cluster centroids of its entity and
// either joins the best match or seeds a new cluster.
package assign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// Outcome describes how an article was placed.
type Outcome string

const (
	// OutcomeJoined means the article was added to an existing cluster.
	OutcomeJoined Outcome = "joined"
	// OutcomeCreated means the article seeded a new cluster.
	OutcomeCreated Outcome = "created"
	// OutcomeRejected means the article named an unregistered entity.
	OutcomeRejected Outcome = "rejected"
)

// Decision records the result of one assignment.
type Decision struct {
	ArticleID  string
	Entity     string
	ClusterID  string
	Outcome    Outcome
	Similarity float64
	TieBroken  bool
}

// Weigher resolves a source name to a credibility weight.
type Weigher interface {
	Weight(source string) float64
}

// Engine assigns articles to clusters. All centroid comparison and cluster
// mutation happen inside the entity's store lock, so similarity is always
// computed against the freshest centroids.
type Engine struct {
	store       *repository.Store
	registry    *entities.Registry
	credibility Weigher
	threshold   float64
	tieMargin   float64
	log         logger.Logger
	now         func() time.Time
}

// New creates an Engine.
func New(store *repository.Store, registry *entities.Registry, cred Weigher, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		registry:    registry,
		credibility: cred,
		threshold:   defaultThreshold,
		tieMargin:   defaultTieMargin,
		log:         logger.Named("assign"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assign places one embedded article. The article must carry a non-nil
// embedding; dedup and embedding happen upstream.
func (e *Engine) Assign(ctx context.Context, art *model.Article) (Decision, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAssignmentLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if _, err := e.registry.Lookup(art.Entity); err != nil {
		metrics.RecordAssignment(string(OutcomeRejected))
		return Decision{ArticleID: art.ID, Entity: art.Entity, Outcome: OutcomeRejected},
			fmt.Errorf("assign %s: %w", art.ID, err)
	}
	if len(art.Embedding) == 0 {
		return Decision{}, fmt.Errorf("assign %s: %w", art.ID, ErrNoEmbedding)
	}

	weight := e.credibility.Weight(art.Source)
	member := repository.Member{
		ArticleID:   art.ID,
		Source:      art.Source,
		PublishedAt: art.PublishedAt,
		Sentiment:   art.Sentiment,
		Stance:      model.ParseStance(art.Stance),
		Weight:      weight,
	}

	var dec Decision
	err := e.store.WithEntity(art.Entity, func(v *repository.EntityView) error {
		best, topSim, tie := e.pick(v.Active(), art.Embedding)
		if best == nil {
			id := uuid.NewString()
			c := repository.NewCluster(id, art.Entity, member, art.Embedding, e.now())
			if err := v.Add(c); err != nil {
				return err
			}
			dec = Decision{ArticleID: art.ID, Entity: art.Entity, ClusterID: id,
				Outcome: OutcomeCreated, Similarity: topSim}
			return nil
		}
		if err := v.Append(best.cluster.ID, member, art.Embedding, e.now()); err != nil {
			return err
		}
		dec = Decision{ArticleID: art.ID, Entity: art.Entity, ClusterID: best.cluster.ID,
			Outcome: OutcomeJoined, Similarity: best.sim, TieBroken: tie}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	metrics.RecordAssignment(string(dec.Outcome))
	e.log.Debug(ctx, "article assigned",
		logger.String("article", art.ID),
		logger.String("entity", art.Entity),
		logger.String("cluster", dec.ClusterID),
		logger.String("outcome", string(dec.Outcome)),
		logger.Float64("similarity", dec.Similarity))
	return dec, nil
}

type candidate struct {
	cluster *repository.Cluster
	sim     float64
}

// pick scans active centroids and chooses among the clusters clearing the
// assignment threshold; below-threshold clusters never compete, however
// large. The highest eligible similarity wins outright, except that every
// eligible cluster within the tie margin of the top similarity contends and
// the largest such cluster takes the article; equal sizes fall back to the
// most recently updated, then the smaller id. topSim carries the best
// similarity over all active clusters so a created decision can report it.
func (e *Engine) pick(active []*repository.Cluster, vec embedding.Vector) (best *candidate, topSim float64, tie bool) {
	var eligible []candidate
	for _, c := range active {
		sim := embedding.Cosine(vec, c.Centroid)
		if sim > topSim {
			topSim = sim
		}
		if sim >= e.threshold {
			eligible = append(eligible, candidate{cluster: c, sim: sim})
		}
	}
	if len(eligible) == 0 {
		return nil, topSim, false
	}

	top := eligible[0].sim
	for _, cand := range eligible[1:] {
		if cand.sim > top {
			top = cand.sim
		}
	}
	contenders := 0
	for i := range eligible {
		cand := &eligible[i]
		if cand.sim != top && top-cand.sim >= e.tieMargin {
			continue
		}
		contenders++
		if best == nil || preferred(cand.cluster, best.cluster) {
			best = cand
		}
	}
	return best, topSim, contenders > 1
}

// preferred reports whether a beats b under the tie-break ordering.
func preferred(a, b *repository.Cluster) bool {
	if len(a.Members) != len(b.Members) {
		return len(a.Members) > len(b.Members)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}
