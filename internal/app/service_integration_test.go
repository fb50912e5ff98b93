package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/adapters/mq/worker"
	"github.com/okian/posture/internal/adapters/pose"
	service "github.com/okian/posture/internal/app"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_QueueAndWorkers(t *testing.T) {
	Convey("Given a started service drained by a worker pool", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop() }()
		_, err := svc.SetConsent(ctx, true)
		So(err, ShouldBeNil)

		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		pool := worker.NewPool(3, q, svc)
		pool.Start(ctx)

		Convey("When a mix of requests is enqueued and the pool shuts down", func() {
			reqs := []model.TrackRequest{
				{Label: model.LabelGood, Confidence: 0.9},
				{Label: model.LabelGood, Confidence: 0.8},
				{Label: model.LabelGood, Confidence: 0.95},
				{Label: model.LabelSlouched, Confidence: 0.7},
				{Label: model.LabelSlouched, Confidence: 0.2},
				{Label: model.LabelUncertain, Confidence: 0.3},
			}
			for _, r := range reqs {
				So(q.Enqueue(ctx, r), ShouldBeNil)
			}
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(pool.Shutdown(sctx), ShouldBeNil)

			Convey("Then only eligible requests become events", func() {
				stats := pool.Stats()
				So(stats.Processed, ShouldEqual, 6)
				So(stats.Stored, ShouldEqual, 4)
				So(stats.Failed, ShouldEqual, 0)

				res, err := svc.Summary(ctx, model.PeriodDaily)
				So(err, ShouldBeNil)
				So(res.TotalEvents, ShouldEqual, 4)
				So(res.UprightRatio, ShouldEqual, 0.75)
			})
		})
	})
}

func TestService_SessionEndToEnd(t *testing.T) {
	Convey("Given a session fed by a scripted pose source", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop() }()
		_, err := svc.SetConsent(ctx, true)
		So(err, ShouldBeNil)

		q := queue.NewInMemoryQueue(queue.WithCapacity(1024))
		pool := worker.NewPool(2, q, svc)
		pool.Start(ctx)

		src := pose.NewSynthetic(
			pose.WithSeed(7),
			pose.WithScript(pose.SceneUpright, pose.SceneUpright, pose.SceneUpright, pose.SceneSlouched),
		)
		h := session.Start(ctx, src,
			session.WithFrameInterval(2*time.Millisecond),
			session.WithTrackInterval(0),
			session.WithSubmitter(q),
		)

		Convey("When the session runs for a while and is stopped", func() {
			So(waitFor(func() bool { return h.Frames() >= 20 }, 5*time.Second), ShouldBeTrue)
			h.Stop()
			frames := int(h.Frames())

			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(pool.Shutdown(sctx), ShouldBeNil)

			Convey("Then every frame was stored and the ratio follows the script", func() {
				So(h.State(), ShouldEqual, session.StateStopped)
				So(q.Dropped(), ShouldEqual, 0)

				res, err := svc.Summary(ctx, model.PeriodDaily)
				So(err, ShouldBeNil)
				So(res.TotalEvents, ShouldEqual, frames)
				good := frames - frames/4
				So(res.UprightRatio, ShouldAlmostEqual, float64(good)/float64(frames), 1e-9)
			})
		})
	})
}
