package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording pipeline metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					RecordArticleIngested()
					RecordArticleDuplicate("exact")
					RecordArticleRejected("empty_text")
					RecordArticleDeferred()
					RecordEmbeddingLatency(12.5)
					RecordEmbeddingError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording clustering metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					RecordAssignment("joined")
					RecordAssignmentLatency(0.8)
					UpdateClusters("active", 12)
					RecordClusterMerge()
					RecordTransition("active", "dormant")
					RecordCorruptCluster()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording scoring metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					RecordSignalNormalized("search_interest")
					RecordImpactUndefined()
					RecordHIRRecord("Act")
					RecordScoringLatency(3.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					UpdateQueueSize(10)
					UpdateQueueCapacity(100)
					UpdateQueueUtilization(0.1)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueError("full")
					UpdateWorkerActive(4)
					RecordWorkerLatency(1.1)
					RecordWorkerError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording repository and http metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					UpdateRepositoryClusters(5)
					UpdateRepositoryEntities(2)
					RecordSnapshotDuration(0.4)
					RecordRepositoryUpdateLatency(0.2)
					RecordHTTPRequest("batch", "POST", "202")
					RecordHTTPRequestDuration("batch", "POST", "202", 2.4)
					RecordErrorByComponent("worker", "assign")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When gathering after recording", func() {
			RecordArticleIngested()
			families, err := GetRegistry().Gather()

			Convey("Then the engine metrics are present", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
