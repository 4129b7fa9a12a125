package scoring_test

import (
	"context"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/impact"
	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/internal/domain/scoring"
)

var (
	t0     = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	window = model.Window{Start: t0, End: t0.Add(24 * time.Hour)}
)

func defined(v float64) impact.Score { return impact.Score{Value: v, Defined: true} }

func TestClassify(t *testing.T) {
	Convey("Given the classification thresholds", t, func() {
		tLow, tHigh, floor := 0.8, 2.5, 0.5

		Convey("Undefined impact is an explicit insufficient-data state", func() {
			hir, ok, class := scoring.Classify(3.0, impact.Score{}, tLow, tHigh, floor)
			So(ok, ShouldBeFalse)
			So(hir, ShouldEqual, 0)
			So(class, ShouldEqual, model.ClassInsufficientData)
		})

		Convey("Zero impact with coverage is infinite hype", func() {
			hir, ok, class := scoring.Classify(1.0, defined(0), tLow, tHigh, floor)
			So(ok, ShouldBeTrue)
			So(math.IsInf(hir, 1), ShouldBeTrue)
			So(class, ShouldEqual, model.ClassAct)
		})

		Convey("A ratio above the high threshold is Act", func() {
			hir, _, class := scoring.Classify(3.0, defined(1.0), tLow, tHigh, floor)
			So(hir, ShouldEqual, 3.0)
			So(class, ShouldEqual, model.ClassAct)
		})

		Convey("A ratio inside the band is Monitor, boundaries included", func() {
			_, _, class := scoring.Classify(1.5, defined(1.0), tLow, tHigh, floor)
			So(class, ShouldEqual, model.ClassMonitor)
			_, _, atLow := scoring.Classify(0.8, defined(1.0), tLow, tHigh, floor)
			So(atLow, ShouldEqual, model.ClassMonitor)
			_, _, atHigh := scoring.Classify(2.5, defined(1.0), tLow, tHigh, floor)
			So(atHigh, ShouldEqual, model.ClassMonitor)
		})

		Convey("A low ratio with negligible coverage is Ignore", func() {
			_, _, class := scoring.Classify(0.2, defined(1.0), tLow, tHigh, floor)
			So(class, ShouldEqual, model.ClassIgnore)
		})

		Convey("A low ratio with real coverage is Underreported", func() {
			_, _, class := scoring.Classify(0.6, defined(1.0), tLow, tHigh, floor)
			So(class, ShouldEqual, model.ClassUnderreported)
		})
	})
}

// memorySink collects records and optionally fails.
type memorySink struct {
	records []model.HIRRecord
	err     error
}

func (m *memorySink) Append(_ context.Context, rec *model.HIRRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *rec)
	return nil
}

type fixture struct {
	store    *repository.Store
	registry *entities.Registry
	ledger   *impact.Ledger
	sink     *memorySink
}

func newFixture(seed ...entities.Entity) *fixture {
	if len(seed) == 0 {
		seed = []entities.Entity{{ID: "acme", Name: "Acme Corp"}}
	}
	return &fixture{
		store:    repository.New(),
		registry: entities.New(seed...),
		ledger:   impact.NewLedger(),
		sink:     &memorySink{},
	}
}

func (f *fixture) scorer(opts ...scoring.Option) *scoring.Scorer {
	combiner := impact.NewCombiner(map[model.SignalType]float64{
		model.SignalSearchInterest: 1.0,
	})
	return scoring.New(f.store, f.registry, f.ledger, combiner, f.sink, opts...)
}

func (f *fixture) addCluster(id string, weights ...float64) {
	f.addClusterAt(id, t0.Add(time.Hour), weights...)
}

func (f *fixture) addClusterAt(id string, first time.Time, weights ...float64) {
	_ = f.store.WithEntity("acme", func(v *repository.EntityView) error {
		c := repository.NewCluster(id, "acme", repository.Member{
			ArticleID:   id + "-m0",
			Source:      "reuters.com",
			PublishedAt: first,
			Weight:      weights[0],
		}, []float64{1}, first)
		if err := v.Add(c); err != nil {
			return err
		}
		for i, w := range weights[1:] {
			at := first.Add(time.Duration(i+1) * time.Hour)
			if err := v.Append(id, repository.Member{
				ArticleID:   id + "-m" + string(rune('1'+i)),
				Source:      "examplewire.net",
				PublishedAt: at,
				Weight:      w,
			}, []float64{1}, at); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *fixture) recordSignal(norm float64) {
	f.ledger.Record(&model.ImpactSignal{
		Entity:     "acme",
		Window:     window,
		Type:       model.SignalSearchInterest,
		Normalized: norm,
	})
}

func TestScoreWindow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cluster with coverage and a recorded signal", t, func() {
		f := newFixture()
		f.addCluster("c1", 0.9, 0.6)
		f.recordSignal(0.5)
		s := f.scorer()

		Convey("Scoring emits one record per covered cluster", func() {
			recs, err := s.ScoreWindow(ctx, window)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)

			rec := recs[0]
			So(rec.ClusterID, ShouldEqual, "c1")
			So(rec.Entity, ShouldEqual, "acme")
			// No baseline history yet: intensity is the raw weight sum.
			So(rec.Coverage, ShouldAlmostEqual, 1.5, 1e-12)
			So(rec.ImpactDefined, ShouldBeTrue)
			So(rec.HIR, ShouldAlmostEqual, 3.0, 1e-12)
			So(rec.Classification, ShouldEqual, model.ClassAct)
			So(rec.Evidence.MemberCount, ShouldEqual, 2)
			So(rec.Evidence.TopSources[0].Source, ShouldEqual, "reuters.com")
			So(f.sink.records, ShouldHaveLength, 1)
		})

		Convey("A cluster without coverage in the window emits nothing", func() {
			recs, err := s.ScoreWindow(ctx, model.Window{
				Start: t0.Add(48 * time.Hour),
				End:   t0.Add(72 * time.Hour),
			})
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
			So(f.sink.records, ShouldBeEmpty)
		})

		Convey("No signals for the window yields InsufficientData, not zero", func() {
			other := model.Window{Start: t0.Add(-24 * time.Hour), End: t0}
			f.addClusterAt("c2", other.Start.Add(time.Hour), 0.9)
			recs, err := s.ScoreWindow(ctx, other)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].Classification, ShouldEqual, model.ClassInsufficientData)
			So(recs[0].HIRDefined, ShouldBeFalse)
		})

		Convey("A duplicate in the sink skips the record without failing the pass", func() {
			f.sink.err = hirlog.ErrDuplicateRecord
			recs, err := s.ScoreWindow(ctx, window)
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})

		Convey("Any other sink failure aborts the pass", func() {
			f.sink.err = context.DeadlineExceeded
			_, err := s.ScoreWindow(ctx, window)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestScoringBaseline(t *testing.T) {
	ctx := context.Background()

	Convey("Given several windows of coverage history", t, func() {
		f := newFixture()
		f.addCluster("c1", 1.0)
		f.recordSignal(1.0)
		s := f.scorer(scoring.WithBaselineWindows(8))

		first, err := s.ScoreEntityWindow(ctx, "acme", window)
		So(err, ShouldBeNil)
		So(first[0].Coverage, ShouldAlmostEqual, 1.0, 1e-12)

		Convey("Later windows normalize against the trailing mean", func() {
			next := model.Window{Start: window.End, End: window.End.Add(24 * time.Hour)}
			f.addClusterAt("c2", next.Start.Add(time.Hour), 3.0)
			f.ledger.Record(&model.ImpactSignal{
				Entity: "acme", Window: next,
				Type: model.SignalSearchInterest, Normalized: 1.0,
			})
			recs, err := s.ScoreEntityWindow(ctx, "acme", next)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			// Trailing mean is 1.0, so a raw 3.0 reads as 3x usual coverage.
			So(recs[0].Coverage, ShouldAlmostEqual, 3.0, 1e-12)
			So(recs[0].Classification, ShouldEqual, model.ClassAct)
		})
	})
}

func TestScoringBaselineReplay(t *testing.T) {
	ctx := context.Background()

	Convey("Given two scored windows of coverage history", t, func() {
		f := newFixture()
		f.addCluster("c1", 1.0)
		f.recordSignal(1.0)
		s := f.scorer(scoring.WithBaselineWindows(8))

		w2 := model.Window{Start: window.End, End: window.End.Add(24 * time.Hour)}
		f.addClusterAt("c2", w2.Start.Add(time.Hour), 3.0)
		_, err := s.ScoreEntityWindow(ctx, "acme", window)
		So(err, ShouldBeNil)
		_, err = s.ScoreEntityWindow(ctx, "acme", w2)
		So(err, ShouldBeNil)

		w3 := model.Window{Start: w2.End, End: w2.End.Add(24 * time.Hour)}

		Convey("Re-scoring an old window leaves later intensities unchanged", func() {
			_, err := s.ScoreEntityWindow(ctx, "acme", window)
			So(err, ShouldBeNil)

			f.addClusterAt("c3", w3.Start.Add(time.Hour), 4.0)
			recs, err := s.ScoreEntityWindow(ctx, "acme", w3)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			// Trailing mean stays (1.0+3.0)/2; a second push for the replayed
			// window would have dragged it to 5/3.
			So(recs[0].Coverage, ShouldAlmostEqual, 2.0, 1e-12)
		})

		Convey("Probing an empty window repeatedly feeds the baseline once", func() {
			for i := 0; i < 3; i++ {
				recs, err := s.ScoreEntityWindow(ctx, "acme", w3)
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
			}

			w4 := model.Window{Start: w3.End, End: w3.End.Add(24 * time.Hour)}
			f.addClusterAt("c4", w4.Start.Add(time.Hour), 4.0)
			recs, err := s.ScoreEntityWindow(ctx, "acme", w4)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			// Baseline is {1.0, 3.0, 0.0}: the empty window counts exactly once.
			So(recs[0].Coverage, ShouldAlmostEqual, 3.0, 1e-12)
		})
	})
}

func TestEntityThresholdOverrides(t *testing.T) {
	ctx := context.Background()

	Convey("Given an entity with custom thresholds", t, func() {
		low, high := 0.1, 10.0
		f := newFixture(entities.Entity{ID: "acme", Name: "Acme Corp", TLow: &low, THigh: &high})
		f.addCluster("c1", 0.9, 0.6)
		f.recordSignal(0.5)
		s := f.scorer()

		Convey("The override widens the Monitor band", func() {
			recs, err := s.ScoreWindow(ctx, window)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			// HIR 3.0 would be Act under the default 2.5 ceiling.
			So(recs[0].Classification, ShouldEqual, model.ClassMonitor)
		})
	})
}
