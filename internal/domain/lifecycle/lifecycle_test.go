package lifecycle_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/domain/lifecycle"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func seed(store *repository.Store, id string, vec []float64, created time.Time, members int) *repository.Cluster {
	c := repository.NewCluster(id, "acme",
		repository.Member{ArticleID: id + "-m0", Source: "reuters.com", PublishedAt: created, Weight: 0.8},
		vec, created)
	_ = store.WithEntity("acme", func(v *repository.EntityView) error {
		if err := v.Add(c); err != nil {
			return err
		}
		for i := 1; i < members; i++ {
			at := created.Add(time.Duration(i) * time.Minute)
			if err := v.Append(id, repository.Member{
				ArticleID:   id + "-m" + strconv.Itoa(i),
				Source:      "reuters.com",
				PublishedAt: at,
				Weight:      0.8,
			}, vec, at); err != nil {
				return err
			}
		}
		return nil
	})
	return c
}

func TestMergePass(t *testing.T) {
	ctx := context.Background()

	Convey("Given two clusters whose centroids drifted together", t, func() {
		store := repository.New()
		big := seed(store, "c-big", []float64{1, 0}, t0, 3)
		small := seed(store, "c-small", []float64{0.995, 0.0998749}, t0.Add(time.Hour), 1)
		far := seed(store, "c-far", []float64{0, 1}, t0, 2)

		mgr := lifecycle.New(store,
			lifecycle.WithMergeThreshold(0.9),
			lifecycle.WithClock(func() time.Time { return t0.Add(2 * time.Hour) }))

		report, err := mgr.RunPass(ctx)
		So(err, ShouldBeNil)

		Convey("The close pair merges, the distant cluster survives alone", func() {
			So(report.Merges, ShouldEqual, 1)
			So(big.State, ShouldEqual, repository.StateActive)
			So(len(big.Members), ShouldEqual, 4)
			So(small.State, ShouldEqual, repository.StateRetired)
			So(small.ForwardTo, ShouldEqual, "c-big")
			So(far.State, ShouldEqual, repository.StateActive)
			So(len(far.Members), ShouldEqual, 2)
		})

		Convey("The pass published a snapshot reflecting the merge", func() {
			snap := store.Snapshot()
			So(snap.CountByState(repository.StateRetired), ShouldEqual, 1)
			So(snap.CountByState(repository.StateActive), ShouldEqual, 2)
		})

		Convey("A second pass finds nothing left to merge", func() {
			again, err := mgr.RunPass(ctx)
			So(err, ShouldBeNil)
			So(again.Merges, ShouldEqual, 0)
		})
	})
}

func TestInactivityTransitions(t *testing.T) {
	ctx := context.Background()

	Convey("Given clusters with different idle times", t, func() {
		store := repository.New()
		stale := seed(store, "c-stale", []float64{1, 0}, t0.Add(-100*time.Hour), 1)
		fresh := seed(store, "c-fresh", []float64{0, 1}, t0.Add(-time.Hour), 1)

		mgr := lifecycle.New(store,
			lifecycle.WithMergeThreshold(0.95),
			lifecycle.WithDormantAfter(72*time.Hour),
			lifecycle.WithArchiveAfter(336*time.Hour),
			lifecycle.WithClock(func() time.Time { return t0 }))

		Convey("Idle clusters go dormant, recent ones stay active", func() {
			report, err := mgr.RunPass(ctx)
			So(err, ShouldBeNil)
			So(report.Dormant, ShouldEqual, 1)
			So(report.Archived, ShouldEqual, 0)
			So(stale.State, ShouldEqual, repository.StateDormant)
			So(fresh.State, ShouldEqual, repository.StateActive)

			Convey("And a dormant cluster idle past the archive window is archived", func() {
				late := lifecycle.New(store,
					lifecycle.WithMergeThreshold(0.95),
					lifecycle.WithDormantAfter(72*time.Hour),
					lifecycle.WithArchiveAfter(336*time.Hour),
					lifecycle.WithClock(func() time.Time { return t0.Add(300 * time.Hour) }))
				report, err := late.RunPass(ctx)
				So(err, ShouldBeNil)
				So(report.Archived, ShouldEqual, 1)
				So(stale.State, ShouldEqual, repository.StateArchived)
			})

			Convey("But the dormancy transition itself never restarts the clock", func() {
				// One pass later the same cluster is still measured from its
				// last assignment, not from the dormancy transition.
				soon := lifecycle.New(store,
					lifecycle.WithMergeThreshold(0.95),
					lifecycle.WithDormantAfter(72*time.Hour),
					lifecycle.WithArchiveAfter(336*time.Hour),
					lifecycle.WithClock(func() time.Time { return t0.Add(237 * time.Hour) }))
				report, err := soon.RunPass(ctx)
				So(err, ShouldBeNil)
				So(report.Archived, ShouldEqual, 1)
				So(stale.State, ShouldEqual, repository.StateArchived)
			})
		})
	})
}

func TestPassExclusion(t *testing.T) {
	Convey("Given a pass already holding the slot", t, func() {
		store := repository.New()
		seed(store, "c1", []float64{1, 0}, t0, 1)

		blocked := make(chan struct{})
		release := make(chan struct{})
		mgr := lifecycle.New(store, lifecycle.WithClock(func() time.Time {
			close(blocked)
			<-release
			return t0
		}))

		go func() { _, _ = mgr.RunPass(context.Background()) }()
		<-blocked

		Convey("A concurrent pass is refused instead of queued", func() {
			_, err := mgr.RunPass(context.Background())
			So(errors.Is(err, lifecycle.ErrPassRunning), ShouldBeTrue)
			close(release)
		})
	})
}
