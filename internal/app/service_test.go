package app_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/app"
	"github.com/newslens/hypetrack/internal/config"
	"github.com/newslens/hypetrack/internal/domain/embedding"
	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/model"
)

const (
	storyA1 = "Acme Corp announced record quarterly earnings today with revenue climbing well past analyst expectations across every product line"
	storyA2 = "Acme Corp announced record quarterly earnings today with revenue climbing far beyond analyst expectations across most product lines"
	storyB1 = "Regulators opened an antitrust investigation into Globex citing concerns about merger concentration in the widget distribution market"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.QueueSize = 128
	cfg.AssignThreshold = 0.5
	cfg.MergeThreshold = 0.8
	cfg.SnapshotInterval = 50 * time.Millisecond
	cfg.HIRLogPath = filepath.Join(t.TempDir(), "hir.db")
	return cfg
}

func newService(t *testing.T, cfg *config.Config, opts ...app.Option) *app.Service {
	t.Helper()
	ctx := context.Background()
	base := []app.Option{
		app.WithRegistry(entities.New(
			entities.Entity{ID: "acme", Name: "Acme Corp"},
			entities.Entity{ID: "globex", Name: "Globex"},
		)),
		app.WithProvider(embedding.NewLocalProvider()),
	}
	svc, err := app.New(ctx, cfg, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	svc.Start(ctx)
	t.Cleanup(func() { svc.Stop(context.Background()) })
	return svc
}

func article(id, entity, text string, at time.Time) *model.Article {
	return &model.Article{
		ID:          id,
		Source:      "reuters.com",
		Entity:      entity,
		PublishedAt: at,
		Title:       "headline",
		Text:        text,
		Sentiment:   0.4,
	}
}

// drain polls until the intake queue is empty and the snapshot satisfies ok,
// or the deadline passes.
func drain(svc *app.Service, ok func() bool) bool {
	deadline := time.After(5 * time.Second)
	for {
		svc.PublishSnapshot()
		if svc.QueueDrained() && ok() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestServiceIngestion(t *testing.T) {
	ctx := context.Background()
	published := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given a running engine", t, func() {
		svc := newService(t, testConfig(t))

		Convey("A batch clusters by story and entity, dropping duplicates", func() {
			accepted, rejected := svc.SubmitBatch(ctx, []*model.Article{
				article("a1", "acme", storyA1, published),
				article("a2", "acme", storyA2, published.Add(time.Hour)),
				article("a3", "acme", storyA1, published.Add(2*time.Hour)), // exact dup of a1
				article("b1", "globex", storyB1, published),
			})
			So(accepted, ShouldEqual, 4)
			So(rejected, ShouldEqual, 0)

			So(drain(svc, func() bool {
				acme, _ := svc.Clusters("acme")
				globex, _ := svc.Clusters("globex")
				return len(acme) == 1 && len(globex) == 1
			}), ShouldBeTrue)

			acme, err := svc.Clusters("acme")
			So(err, ShouldBeNil)
			So(acme, ShouldHaveLength, 1)
			So(acme[0].MemberCount, ShouldEqual, 2)
			So(acme[0].MemberIDs, ShouldContain, "a1")
			So(acme[0].MemberIDs, ShouldContain, "a2")

			globex, err := svc.Clusters("globex")
			So(err, ShouldBeNil)
			So(globex[0].MemberCount, ShouldEqual, 1)

			Convey("And cluster lookup by id works through the facade", func() {
				sum, hops, err := svc.Cluster(acme[0].ID)
				So(err, ShouldBeNil)
				So(hops, ShouldEqual, 0)
				So(sum.Entity, ShouldEqual, "acme")
			})

			Convey("And stats reflect the ingested state", func() {
				stats, err := svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(stats.QueueDepth, ShouldEqual, 0)
				So(stats.Entities, ShouldEqual, 2)
				So(stats.ClustersByState["active"], ShouldEqual, 2)
				So(stats.DedupeIndexSize, ShouldEqual, 3)
			})
		})

		Convey("Unknown entities in signals are refused", func() {
			sig := &model.ImpactSignal{
				Entity: "ghost",
				Window: svc.WindowAt(published),
				Type:   model.SignalSearchInterest,
				Raw:    50,
			}
			So(svc.SubmitSignal(ctx, sig), ShouldNotBeNil)
		})
	})
}

func TestServiceScoring(t *testing.T) {
	ctx := context.Background()
	published := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given ingested coverage and a recorded signal", t, func() {
		svc := newService(t, testConfig(t))

		svc.SubmitBatch(ctx, []*model.Article{
			article("a1", "acme", storyA1, published),
			article("a2", "acme", storyA2, published.Add(time.Hour)),
		})
		So(drain(svc, func() bool {
			acme, _ := svc.Clusters("acme")
			return len(acme) == 1
		}), ShouldBeTrue)

		window := svc.WindowAt(published)
		So(svc.SubmitSignal(ctx, &model.ImpactSignal{
			Entity: "acme",
			Window: window,
			Type:   model.SignalSearchInterest,
			Raw:    60,
		}), ShouldBeNil)

		Convey("Scoring the window emits a classified record", func() {
			recs, err := svc.ScoreWindow(ctx, window)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].Entity, ShouldEqual, "acme")
			So(recs[0].ImpactDefined, ShouldBeTrue)
			So(recs[0].Classification, ShouldNotBeEmpty)

			Convey("And the record is queryable from the log", func() {
				got, err := svc.Records(ctx, hirlog.Query{Entity: "acme"})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ClusterID, ShouldEqual, recs[0].ClusterID)

				stats, err := svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(stats.HIRRecords, ShouldEqual, 1)
			})

			Convey("And re-scoring the same window stands by the original record", func() {
				again, err := svc.ScoreWindow(ctx, window)
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
				stats, _ := svc.Stats(ctx)
				So(stats.HIRRecords, ShouldEqual, 1)
			})
		})

		Convey("A window with coverage but no signals scores as insufficient data", func() {
			prev := window.Prev()
			svc.SubmitBatch(ctx, []*model.Article{
				article("old1", "acme", storyB1, prev.Start.Add(time.Hour)),
			})
			So(drain(svc, func() bool {
				acme, _ := svc.Clusters("acme")
				return len(acme) == 2
			}), ShouldBeTrue)

			recs, err := svc.ScoreWindow(ctx, prev)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].Classification, ShouldEqual, model.ClassInsufficientData)
		})

		Convey("A lifecycle pass runs on demand without disturbing fresh clusters", func() {
			report, err := svc.RunLifecyclePass(ctx)
			So(err, ShouldBeNil)
			So(report.Entities, ShouldEqual, 1)
			So(report.Dormant, ShouldEqual, 0)

			acme, _ := svc.Clusters("acme")
			So(acme, ShouldHaveLength, 1)
		})
	})
}

// failingProvider fails while tripped, then delegates to the local provider.
type failingProvider struct {
	tripped  atomic.Bool
	delegate embedding.Provider
}

func (p *failingProvider) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if p.tripped.Load() {
		return nil, embedding.ErrProvider
	}
	return p.delegate.Embed(ctx, text)
}
func (p *failingProvider) Dim() int     { return p.delegate.Dim() }
func (p *failingProvider) Name() string { return "failing" }

func TestServiceDeferral(t *testing.T) {
	ctx := context.Background()
	published := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	Convey("Given an embedding provider outage", t, func() {
		provider := &failingProvider{delegate: embedding.NewLocalProvider()}
		provider.tripped.Store(true)
		svc := newService(t, testConfig(t), app.WithProvider(provider))

		svc.SubmitBatch(ctx, []*model.Article{article("a1", "acme", storyA1, published)})

		Convey("The article is parked instead of lost", func() {
			found := false
			deadline := time.After(5 * time.Second)
			for !found {
				stats, err := svc.Stats(ctx)
				So(err, ShouldBeNil)
				found = stats.Deferred == 1
				if !found {
					select {
					case <-deadline:
						So(found, ShouldBeTrue)
					case <-time.After(20 * time.Millisecond):
					}
				}
			}

			Convey("And the next batch retries it once the provider recovers", func() {
				provider.tripped.Store(false)
				accepted, _ := svc.SubmitBatch(ctx, nil)
				So(accepted, ShouldEqual, 1)

				So(drain(svc, func() bool {
					acme, _ := svc.Clusters("acme")
					return len(acme) == 1
				}), ShouldBeTrue)
			})
		})
	})
}
