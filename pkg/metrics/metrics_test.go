package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// family returns the gathered family with the given name, or nil.
func family(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewMetricsManager(WithPrometheusRegistry(registry))

			Convey("Then metrics are registered under the posture namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.nudges.Inc()
				f := family(t, registry, "posture_nudges_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.storedEvents.Set(7)

			Convey("Then names and labels follow the options", func() {
				f := family(t, registry, "test_sub_stored_events")
				So(f, ShouldNotBeNil)
				m := f.GetMetric()[0]
				So(m.GetGauge().GetValue(), ShouldEqual, 7)
				So(m.GetLabel()[0].GetName(), ShouldEqual, "env")
				So(m.GetLabel()[0].GetValue(), ShouldEqual, "test")
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording posture metrics", func() {
			So(func() {
				RecordClassification("good")
				RecordClassification("slouched")
				RecordNudge()
				RecordNudgeSuppressed()
				RecordEventStored("good")
				RecordEventRejected("consent_disabled")
				UpdateStoredEvents(3)
				UpdateConsentEnabled(true)
				RecordSummaryLatency(1.5)
				RecordFrameProcessed()
				RecordFrameFailure("timeout")
				RecordTrackSubmitted("queued")
			}, ShouldNotPanic)

			Convey("Then the consent gauge mirrors the flag", func() {
				f := family(t, GetRegistry(), "posture_consent_enabled")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 1)

				UpdateConsentEnabled(false)
				f = family(t, GetRegistry(), "posture_consent_enabled")
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 0)
			})
		})

		Convey("When recording infrastructure metrics", func() {
			So(func() {
				RecordHTTPRequest("/api/track", "POST", "200")
				RecordHTTPRequestDuration("/api/track", "POST", "200", 3)
				RecordRepositoryAppendLatency(1)
				RecordRepositoryQueryLatency(2)
				RecordRepositoryError("append")
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				UpdateQueueUtilization(1.0 / 64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueDropped()
				UpdateWorkerActiveCount(2)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				RecordErrorByComponent("queue", "closed")
				RecordErrorByType("validation_error", "low")
				RecordErrorByEndpoint("/api/summary", "GET", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				So(family(t, GetRegistry(), "posture_queue_dropped_total"), ShouldNotBeNil)
				So(family(t, GetRegistry(), "posture_http_requests_total"), ShouldNotBeNil)
				So(family(t, GetRegistry(), "posture_repository_errors_total"), ShouldNotBeNil)
			})
		})
	})
}
