// Package scoring computes hype-to-impact ratios: for every cluster with
// coverage in a closed window it divides normalized coverage intensity by
// the window's impact score and classifies the result.
package scoring

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/impact"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
	"github.com/newslens/hypetrack/pkg/metrics"
)

// RecordSink persists scored records. Records are append-only facts and are
// never retracted, so a sink error fails the record, not the pass.
type RecordSink interface {
	Append(ctx context.Context, rec *model.HIRRecord) error
}

// Scorer produces HIRRecords per (cluster, window).
type Scorer struct {
	store    *repository.Store
	registry *entities.Registry
	ledger   *impact.Ledger
	combiner *impact.Combiner
	sink     RecordSink

	tLow             float64
	tHigh            float64
	minCoverageFloor float64
	baselineWindows  int
	topSources       int

	log logger.Logger
	now func() time.Time

	// mu serializes scoring passes; trailing baselines advance once per
	// scored window, so two overlapping passes would double-push.
	mu sync.Mutex
	// baselines holds, per entity, the trailing raw coverage totals of
	// previously scored windows.
	baselines map[string]*coverageBaseline
}

type coverageBaseline struct {
	totals []float64
	next   int
	full   bool
	// fed remembers which windows already pushed a total, so re-scoring a
	// window never advances the trailing baseline a second time.
	fed map[string]struct{}
}

func (b *coverageBaseline) mean() (float64, bool) {
	n := b.next
	if b.full {
		n = len(b.totals)
	}
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += b.totals[i]
	}
	return sum / float64(n), true
}

func (b *coverageBaseline) push(v float64) {
	b.totals[b.next] = v
	b.next = (b.next + 1) % len(b.totals)
	if b.next == 0 {
		b.full = true
	}
}

// New creates a Scorer.
func New(store *repository.Store, registry *entities.Registry, ledger *impact.Ledger,
	combiner *impact.Combiner, sink RecordSink, opts ...Option) *Scorer {
	s := &Scorer{
		store:            store,
		registry:         registry,
		ledger:           ledger,
		combiner:         combiner,
		sink:             sink,
		tLow:             defaultTLow,
		tHigh:            defaultTHigh,
		minCoverageFloor: defaultMinCoverageFloor,
		baselineWindows:  defaultBaselineWindows,
		topSources:       defaultTopSources,
		log:              logger.Named("scoring"),
		now:              time.Now,
		baselines:        make(map[string]*coverageBaseline),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreWindow scores every cluster carrying coverage in the window, for all
// entities the store knows. Clusters with zero coverage in the window emit
// no record at all.
func (s *Scorer) ScoreWindow(ctx context.Context, w model.Window) ([]model.HIRRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.HIRRecord
	for _, entity := range s.store.EntityIDs() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		recs, err := s.scoreEntity(ctx, entity, w)
		if err != nil {
			return out, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ScoreEntityWindow scores one entity's clusters for the window.
func (s *Scorer) ScoreEntityWindow(ctx context.Context, entity string, w model.Window) ([]model.HIRRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreEntity(ctx, entity, w)
}

type clusterCoverage struct {
	id       string
	raw      float64
	evidence model.Evidence
}

func (s *Scorer) scoreEntity(ctx context.Context, entity string, w model.Window) ([]model.HIRRecord, error) {
	// Collect per-cluster raw coverage under the entity lock so the
	// evidence snapshot is taken against a consistent cluster state.
	var covered []clusterCoverage
	var entityTotal float64
	err := s.store.WithEntity(entity, func(v *repository.EntityView) error {
		for _, c := range v.All() {
			if c.State == repository.StateRetired || c.Corrupt {
				continue
			}
			raw := c.CoverageInWindow(w)
			entityTotal += raw
			if raw == 0 {
				continue
			}
			covered = append(covered, clusterCoverage{
				id:  c.ID,
				raw: raw,
				evidence: model.Evidence{
					MemberCount:       len(c.Members),
					TopSources:        c.TopSources(s.topSources),
					WeightedSentiment: c.WeightedMeanSentiment(),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	baseline := s.baseline(entity)
	mean, hasBaseline := baseline.mean()
	if _, done := baseline.fed[w.Key()]; !done {
		baseline.push(entityTotal)
		baseline.fed[w.Key()] = struct{}{}
	}

	if len(covered) == 0 {
		return nil, nil
	}

	imp := s.impactFor(entity, w)
	tLow, tHigh := s.thresholds(entity)

	now := s.now().UTC()
	out := make([]model.HIRRecord, 0, len(covered))
	for _, cc := range covered {
		intensity := cc.raw
		if hasBaseline && mean > 0 {
			intensity = cc.raw / mean
		}
		rec := model.HIRRecord{
			ID:            uuid.NewString(),
			ClusterID:     cc.id,
			Entity:        entity,
			Window:        w,
			Coverage:      intensity,
			Impact:        imp.Value,
			ImpactDefined: imp.Defined,
			Evidence:      cc.evidence,
			CreatedAt:     now,
		}
		rec.HIR, rec.HIRDefined, rec.Classification = Classify(intensity, imp, tLow, tHigh, s.minCoverageFloor)

		if s.sink != nil {
			if err := s.sink.Append(ctx, &rec); err != nil {
				if errors.Is(err, hirlog.ErrDuplicateRecord) {
					// The cluster/window pair was scored in an earlier
					// pass; the stored record stands.
					continue
				}
				s.log.Error(ctx, "failed to persist record",
					logger.String("cluster", rec.ClusterID),
					logger.String("window", w.Key()),
					logger.Error(err))
				return out, err
			}
		}
		metrics.RecordHIRRecord(string(rec.Classification))
		out = append(out, rec)
	}
	return out, nil
}

// Classify maps a (coverage intensity, impact) pair to the HIR value and its
// classification. It is a pure function of its arguments; callers guarantee
// coverage > 0.
func Classify(coverage float64, imp impact.Score, tLow, tHigh, minFloor float64) (hir float64, defined bool, class model.Classification) {
	if !imp.Defined {
		return 0, false, model.ClassInsufficientData
	}
	if imp.Value == 0 {
		// Maximal hype against zero measured impact is the clearest
		// overhype signal there is.
		return math.Inf(1), true, model.ClassAct
	}
	hir = coverage / imp.Value
	switch {
	case hir > tHigh:
		return hir, true, model.ClassAct
	case hir >= tLow:
		return hir, true, model.ClassMonitor
	case coverage < minFloor:
		// Low ratio and barely any attention: the true no-signal case.
		return hir, true, model.ClassIgnore
	default:
		// Low ratio but real coverage existed; impact outran attention.
		return hir, true, model.ClassUnderreported
	}
}

func (s *Scorer) impactFor(entity string, w model.Window) impact.Score {
	present, ok := s.ledger.Present(entity, w)
	if !ok {
		metrics.RecordImpactUndefined()
		return impact.Score{}
	}
	return s.combiner.Combine(present)
}

func (s *Scorer) thresholds(entity string) (tLow, tHigh float64) {
	tLow, tHigh = s.tLow, s.tHigh
	if ent, err := s.registry.Lookup(entity); err == nil {
		if ent.TLow != nil {
			tLow = *ent.TLow
		}
		if ent.THigh != nil {
			tHigh = *ent.THigh
		}
	}
	return tLow, tHigh
}

func (s *Scorer) baseline(entity string) *coverageBaseline {
	b, ok := s.baselines[entity]
	if !ok {
		b = &coverageBaseline{
			totals: make([]float64, s.baselineWindows),
			fed:    make(map[string]struct{}),
		}
		s.baselines[entity] = b
	}
	return b
}
