package pose_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/posture/internal/adapters/pose"
	"github.com/okian/posture/internal/domain/classifier"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSynthetic_ScenesClassify(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		ctx := context.Background()
		cl := classifier.New()

		cases := []struct {
			scene pose.Scene
			want  model.Label
		}{
			{pose.SceneUpright, model.LabelGood},
			{pose.SceneSlouched, model.LabelSlouched},
			{pose.SceneAbsent, model.LabelNoPerson},
			{pose.ScenePartial, model.LabelUncertain},
		}
		Convey("Every scene classifies as rendered under jitter", func() {
			for _, tc := range cases {
				for seed := int64(0); seed < 50; seed++ {
					src := pose.NewSynthetic(pose.WithSeed(seed), pose.WithScript(tc.scene))
					p, err := src.Estimate(ctx)
					So(err, ShouldBeNil)
					So(cl.Classify(p).Label, ShouldEqual, tc.want)
				}
			}
		})
	})
}

func TestSynthetic_Sequence(t *testing.T) {
	Convey("Given a synthetic source", t, func() {
		ctx := context.Background()

		Convey("A script cycles frame by frame", func() {
			src := pose.NewSynthetic(pose.WithScript(pose.SceneAbsent, pose.SceneUpright))
			var empties []bool
			for i := 0; i < 4; i++ {
				p, err := src.Estimate(ctx)
				So(err, ShouldBeNil)
				empties = append(empties, p.Empty())
			}
			So(empties, ShouldResemble, []bool{true, false, true, false})
		})

		Convey("The same seed yields the same frames", func() {
			a := pose.NewSynthetic(pose.WithSeed(42))
			b := pose.NewSynthetic(pose.WithSeed(42))
			for i := 0; i < 20; i++ {
				pa, _ := a.Estimate(ctx)
				pb, _ := b.Estimate(ctx)
				So(pa, ShouldResemble, pb)
			}
		})

		Convey("Scenes persist for a run of frames", func() {
			src := pose.NewSynthetic(pose.WithSeed(7), pose.WithRunLength(5), pose.WithAbsentRatio(0), pose.WithJitter(0))
			cl := classifier.New()
			var labels []model.Label
			for i := 0; i < 10; i++ {
				p, _ := src.Estimate(ctx)
				labels = append(labels, cl.Classify(p).Label)
			}
			for i := 1; i < 5; i++ {
				So(labels[i], ShouldEqual, labels[0])
				So(labels[5+i], ShouldEqual, labels[5])
			}
		})

		Convey("The slouch ratio bounds the mix", func() {
			always := pose.NewSynthetic(pose.WithSeed(3), pose.WithSlouchRatio(1), pose.WithAbsentRatio(0))
			never := pose.NewSynthetic(pose.WithSeed(3), pose.WithSlouchRatio(0), pose.WithAbsentRatio(0))
			cl := classifier.New()
			for i := 0; i < 30; i++ {
				p, _ := always.Estimate(ctx)
				So(cl.Classify(p).Label, ShouldEqual, model.LabelSlouched)
				p, _ = never.Estimate(ctx)
				So(cl.Classify(p).Label, ShouldEqual, model.LabelGood)
			}
		})

		Convey("A delay honours cancellation", func() {
			src := pose.NewSynthetic(pose.WithDelay(time.Second))
			cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
			defer cancel()
			_, err := src.Estimate(cctx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("Estimate fails after Close", func() {
			src := pose.NewSynthetic()
			So(src.Close(), ShouldBeNil)
			_, err := src.Estimate(ctx)
			So(errors.Is(err, pose.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestFixedSources(t *testing.T) {
	Convey("Given the fixed sources", t, func() {
		ctx := context.Background()

		Convey("Unavailable reports ErrUnavailable", func() {
			_, err := pose.Unavailable{}.Estimate(ctx)
			So(errors.Is(err, session.ErrUnavailable), ShouldBeTrue)
			So(pose.Unavailable{}.Close(), ShouldBeNil)
		})

		Convey("Failing returns its error", func() {
			boom := errors.New("boom")
			_, err := pose.Failing{Err: boom}.Estimate(ctx)
			So(err, ShouldEqual, boom)
		})
	})
}
