package model_test

import (
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/okian/posture/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseLabel(t *testing.T) {
	convey.Convey("Given label strings from the wire", t, func() {
		convey.Convey("When the label is known", func() {
			for _, s := range []string{"good", "slouched", "no_person", "uncertain", " good "} {
				l, err := model.ParseLabel(s)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(l), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("When the label is unknown", func() {
			_, err := model.ParseLabel("hunched")

			convey.Convey("Then it should return ErrUnknownLabel", func() {
				convey.So(errors.Is(err, model.ErrUnknownLabel), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then only good and slouched are persistable", func() {
			convey.So(model.LabelGood.Persistable(), convey.ShouldBeTrue)
			convey.So(model.LabelSlouched.Persistable(), convey.ShouldBeTrue)
			convey.So(model.LabelNoPerson.Persistable(), convey.ShouldBeFalse)
			convey.So(model.LabelUncertain.Persistable(), convey.ShouldBeFalse)
		})
	})
}

func TestPeriod(t *testing.T) {
	convey.Convey("Given summary periods", t, func() {
		now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

		convey.Convey("When resolving daily", func() {
			p, err := model.ParsePeriod("daily")
			convey.So(err, convey.ShouldBeNil)
			w := p.Resolve(now)

			convey.Convey("Then the window covers the trailing 24 hours inclusively", func() {
				convey.So(w.To, convey.ShouldEqual, now)
				convey.So(w.From, convey.ShouldEqual, now.Add(-24*time.Hour))
				convey.So(w.Contains(w.From), convey.ShouldBeTrue)
				convey.So(w.Contains(w.To), convey.ShouldBeTrue)
				convey.So(w.Contains(w.From.Add(-time.Nanosecond)), convey.ShouldBeFalse)
				convey.So(w.Contains(now.Add(time.Nanosecond)), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When resolving weekly", func() {
			p, err := model.ParsePeriod("weekly")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the window covers the trailing 7 days", func() {
				convey.So(p.Resolve(now).From, convey.ShouldEqual, now.Add(-7*24*time.Hour))
			})
		})

		convey.Convey("When the period is unknown", func() {
			_, err := model.ParsePeriod("monthly")

			convey.Convey("Then it should fail instead of defaulting", func() {
				convey.So(errors.Is(err, model.ErrUnknownPeriod), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPose(t *testing.T) {
	convey.Convey("Given a pose", t, func() {
		pose := model.Pose{
			Keypoints: []model.Keypoint{
				{Name: model.LeftShoulder, X: 90, Y: 100, Score: 0.9},
				{Name: model.RightShoulder, X: 110, Y: 100, Score: 0.9},
			},
			Width:  640,
			Height: 480,
		}

		convey.Convey("Then lookup finds present landmarks only", func() {
			_, ok := pose.Lookup(model.LeftShoulder)
			convey.So(ok, convey.ShouldBeTrue)
			_, ok = pose.Lookup(model.Nose)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then the midpoint of the shoulders is the shoulder center", func() {
			l, _ := pose.Lookup(model.LeftShoulder)
			r, _ := pose.Lookup(model.RightShoulder)
			convey.So(model.Midpoint(l, r), convey.ShouldResemble, model.Point{X: 100, Y: 100})
		})

		convey.Convey("Then non-finite coordinates are detected", func() {
			convey.So(model.Keypoint{X: math.NaN()}.Finite(), convey.ShouldBeFalse)
			convey.So(model.Keypoint{Y: math.Inf(1)}.Finite(), convey.ShouldBeFalse)
			convey.So(model.Keypoint{X: 1, Y: 2, Score: 0.5}.Finite(), convey.ShouldBeTrue)
		})

		convey.Convey("Then an empty pose reports no person", func() {
			convey.So(model.Pose{}.Empty(), convey.ShouldBeTrue)
			convey.So(pose.Empty(), convey.ShouldBeFalse)
		})
	})
}
