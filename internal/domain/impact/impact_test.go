package impact_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/domain/impact"
	"github.com/newslens/hypetrack/internal/domain/model"
)

var window = model.WindowAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), 24*time.Hour)

func signal(entity string, typ model.SignalType, raw float64) *model.ImpactSignal {
	return &model.ImpactSignal{Entity: entity, Window: window, Type: typ, Raw: raw}
}

func TestNormalize(t *testing.T) {
	Convey("Given a trailing baseline normalizer", t, func() {
		n := impact.NewNormalizer(impact.WithBaselineWindows(8))

		Convey("A lone observation sits mid-scale", func() {
			So(n.Normalize(signal("acme", model.SignalSearchInterest, 40)), ShouldEqual, 0.5)
		})

		Convey("Repeated identical observations stay mid-scale", func() {
			n.Normalize(signal("acme", model.SignalSearchInterest, 40))
			So(n.Normalize(signal("acme", model.SignalSearchInterest, 40)), ShouldEqual, 0.5)
		})

		Convey("With history, min-max scaling spreads the range", func() {
			n.Normalize(signal("acme", model.SignalSearchInterest, 20))
			n.Normalize(signal("acme", model.SignalSearchInterest, 100))
			So(n.Normalize(signal("acme", model.SignalSearchInterest, 60)), ShouldAlmostEqual, 0.5, 1e-12)
			So(n.Normalize(signal("acme", model.SignalSearchInterest, 100)), ShouldEqual, 1.0)
			So(n.Normalize(signal("acme", model.SignalSearchInterest, 20)), ShouldEqual, 0.0)
		})

		Convey("Baselines are per entity and per type", func() {
			n.Normalize(signal("acme", model.SignalSearchInterest, 20))
			n.Normalize(signal("acme", model.SignalSearchInterest, 100))
			// globex has no history yet, so its first value is mid-scale.
			So(n.Normalize(signal("globex", model.SignalSearchInterest, 100)), ShouldEqual, 0.5)
			// verified_events history is separate from search_interest.
			So(n.Normalize(signal("acme", model.SignalVerifiedEvents, 3)), ShouldEqual, 0.5)
		})

		Convey("Market movement scales by log magnitude, ignoring direction", func() {
			first := n.Normalize(signal("acme", model.SignalMarketMovement, -4))
			So(first, ShouldEqual, 1.0)
			next := n.Normalize(signal("acme", model.SignalMarketMovement, 1))
			So(next, ShouldBeBetween, 0, 1)
			So(n.Normalize(signal("acme", model.SignalMarketMovement, 4)), ShouldEqual, 1.0)

			Convey("A flat market normalizes to zero, not mid-scale", func() {
				flat := impact.NewNormalizer()
				So(flat.Normalize(signal("acme", model.SignalMarketMovement, 0)), ShouldEqual, 0)
			})
		})

		Convey("The baseline forgets observations beyond its capacity", func() {
			short := impact.NewNormalizer(impact.WithBaselineWindows(3))
			short.Normalize(signal("acme", model.SignalSearchInterest, 1000))
			short.Normalize(signal("acme", model.SignalSearchInterest, 10))
			short.Normalize(signal("acme", model.SignalSearchInterest, 20))
			// The 1000 spike has rolled off; had it not, 15 would scale to
			// roughly 0.005 against the spike.
			So(short.Normalize(signal("acme", model.SignalSearchInterest, 15)), ShouldAlmostEqual, 0.5, 1e-12)
		})
	})
}

func TestCombine(t *testing.T) {
	Convey("Given the weighted signal combiner", t, func() {
		c := impact.NewCombiner(map[model.SignalType]float64{
			model.SignalSearchInterest: 0.4,
			model.SignalMarketMovement: 0.4,
			model.SignalVerifiedEvents: 0.2,
		})

		Convey("All types present combine by their configured weights", func() {
			s := c.Combine(map[model.SignalType]float64{
				model.SignalSearchInterest: 1.0,
				model.SignalMarketMovement: 0.5,
				model.SignalVerifiedEvents: 0.0,
			})
			So(s.Defined, ShouldBeTrue)
			So(s.Value, ShouldAlmostEqual, 0.6, 1e-12)
		})

		Convey("Absent types redistribute weight instead of dragging the score down", func() {
			s := c.Combine(map[model.SignalType]float64{
				model.SignalSearchInterest: 0.5,
				model.SignalVerifiedEvents: 0.5,
			})
			So(s.Defined, ShouldBeTrue)
			So(s.Value, ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("No signals at all is undefined, not zero", func() {
			s := c.Combine(nil)
			So(s.Defined, ShouldBeFalse)
			So(s.Value, ShouldEqual, 0)
		})

		Convey("Only zero-weight types is also undefined", func() {
			s := c.Combine(map[model.SignalType]float64{model.SignalOther: 0.9})
			So(s.Defined, ShouldBeFalse)
		})

		Convey("A genuine zero stays defined", func() {
			s := c.Combine(map[model.SignalType]float64{model.SignalSearchInterest: 0})
			So(s.Defined, ShouldBeTrue)
			So(s.Value, ShouldEqual, 0)
		})
	})
}

func TestLedger(t *testing.T) {
	Convey("Given the per-window signal ledger", t, func() {
		l := impact.NewLedger()

		Convey("An empty window reads as absent", func() {
			_, ok := l.Present("acme", window)
			So(ok, ShouldBeFalse)
		})

		Convey("Recorded signals read back by entity and window", func() {
			sig := signal("acme", model.SignalSearchInterest, 40)
			sig.Normalized = 0.7
			l.Record(sig)

			got, ok := l.Present("acme", window)
			So(ok, ShouldBeTrue)
			So(got[model.SignalSearchInterest], ShouldEqual, 0.7)
			So(l.Windows("acme"), ShouldResemble, []model.Window{window})

			Convey("A later observation of the same type replaces the earlier one", func() {
				repl := signal("acme", model.SignalSearchInterest, 90)
				repl.Normalized = 0.9
				l.Record(repl)
				got, _ := l.Present("acme", window)
				So(got[model.SignalSearchInterest], ShouldEqual, 0.9)
				So(l.Windows("acme"), ShouldHaveLength, 1)
			})

			Convey("Other entities and windows stay isolated", func() {
				_, ok := l.Present("globex", window)
				So(ok, ShouldBeFalse)
				_, ok = l.Present("acme", window.Prev())
				So(ok, ShouldBeFalse)
			})
		})
	})
}
