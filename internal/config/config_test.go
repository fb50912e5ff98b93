package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/internal/domain/classifier"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.APIPrefix, convey.ShouldEqual, "/api")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
			convey.So(cfg.DB, convey.ShouldEqual, "posture.db")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			convey.So(cfg.EligibilityMinConfidence, convey.ShouldEqual, 0.6)
			convey.So(cfg.NudgeMinConfidence, convey.ShouldEqual, 0.6)
			convey.So(cfg.NudgeCooldown(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.FrameInterval(), convey.ShouldEqual, 100*time.Millisecond)
			convey.So(cfg.FrameTimeout(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.TrackInterval(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then its policy equals the classifier default", func() {
			convey.So(cfg.Policy(), convey.ShouldResemble, classifier.DefaultPolicy())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"relative prefix", func(c *config.Config) { c.APIPrefix = "api" }},
			{"unknown store", func(c *config.Config) { c.Store = "redis" }},
			{"empty db", func(c *config.Config) { c.DB = "" }},
			{"confidence above one", func(c *config.Config) { c.EligibilityMinConfidence = 1.2 }},
			{"negative nudge floor", func(c *config.Config) { c.NudgeMinConfidence = -0.1 }},
			{"negative cooldown", func(c *config.Config) { c.NudgeCooldownMS = -1 }},
			{"inverted dead zone", func(c *config.Config) { c.SlouchMaxVerticalSpan = 0.2 }},
			{"zero decision score", func(c *config.Config) { c.DecisionScore = 0 }},
		}

		convey.Convey("Each broken field is rejected with ErrInvalidConfig", func() {
			for _, tc := range cases {
				c := *cfg
				tc.mutate(&c)
				err := c.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("The memory store needs no db path", func() {
			c := *cfg
			c.Store = config.StoreMemory
			c.DB = ""
			convey.So(c.Validate(), convey.ShouldBeNil)
		})
	})
}
