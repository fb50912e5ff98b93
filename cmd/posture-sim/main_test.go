package main

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/posture/internal/config"
)

func TestFromConfig(t *testing.T) {
	convey.Convey("Given the shared configuration", t, func() {
		c := config.New()
		c.Addr = ":9000"
		c.APIPrefix = "/v1"
		c.FrameIntervalMS = 50
		c.TrackIntervalMS = 1000
		c.NudgeCooldownMS = 2000
		c.NudgeMinConfidence = 0.7
		c.WorkerCount = 4
		c.QueueSize = 128
		c.DecisionScore = 0.7

		convey.Convey("When simulator settings are derived", func() {
			cfg := fromConfig(c)

			convey.Convey("Then loop timing, thresholds and the URL follow it", func() {
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:9000/v1")
				convey.So(cfg.FPS, convey.ShouldEqual, 20)
				convey.So(cfg.TrackInterval, convey.ShouldEqual, time.Second)
				convey.So(cfg.NudgeCooldown, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.NudgeMinConf, convey.ShouldEqual, 0.7)
				convey.So(cfg.Workers, convey.ShouldEqual, 4)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.Policy.DecisionScore, convey.ShouldEqual, 0.7)
				convey.So(cfg.FrameTimeout, convey.ShouldEqual, 500*time.Millisecond)
			})
		})
	})
}
