// Package classifier maps a single frame of body keypoints to a posture label.
//
// Classification is a pure function of the pose and the policy: no clocks,
// no randomness, no I/O. Ambiguous or malformed input degrades to uncertain
// and never panics.
package classifier

import (
	"math"

	"github.com/okian/posture/internal/domain/model"
)

// scoreEpsilon absorbs float error when summing rule weights.
const scoreEpsilon = 1e-9

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithPolicy replaces the default thresholds. Invalid policies are ignored.
func WithPolicy(p Policy) Option {
	return func(c *Classifier) {
		if p.Validate() == nil {
			c.policy = p
		}
	}
}

// Measurements are the normalized geometric features of a frame.
type Measurements struct {
	TorsoXDrift  float64
	HeadForward  float64
	VerticalSpan float64
}

// Classifier applies a Policy to poses. It is safe for concurrent use.
type Classifier struct {
	policy Policy
}

// New creates a classifier with the default policy unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active thresholds.
func (c *Classifier) Policy() Policy { return c.policy }

// Classify returns the posture label for one frame.
func (c *Classifier) Classify(pose model.Pose) model.Classification {
	if pose.Empty() {
		return model.Classification{Label: model.LabelNoPerson, Confidence: 0}
	}
	m, ok := c.Measure(pose)
	if !ok {
		return c.uncertain()
	}

	if score := c.uprightScore(m); score+scoreEpsilon >= c.policy.DecisionScore {
		return model.Classification{Label: model.LabelGood, Confidence: c.confidence(score)}
	}
	if score := c.slouchScore(m); score+scoreEpsilon >= c.policy.DecisionScore {
		return model.Classification{Label: model.LabelSlouched, Confidence: c.confidence(score)}
	}
	return c.uncertain()
}

// Measure computes the normalized features. It reports false when a required
// landmark is missing, scored below the floor, or the numbers are unusable.
func (c *Classifier) Measure(pose model.Pose) (Measurements, bool) {
	if !usableDimension(pose.Width) || !usableDimension(pose.Height) {
		return Measurements{}, false
	}

	points := make(map[model.KeypointName]model.Keypoint, len(model.RequiredKeypoints))
	for _, name := range model.RequiredKeypoints {
		kp, ok := pose.Lookup(name)
		if !ok || !kp.Finite() || kp.Score < c.policy.MinKeypointScore {
			return Measurements{}, false
		}
		points[name] = kp
	}

	shoulder := model.Midpoint(points[model.LeftShoulder], points[model.RightShoulder])
	hip := model.Midpoint(points[model.LeftHip], points[model.RightHip])
	nose := points[model.Nose]

	m := Measurements{
		TorsoXDrift:  math.Abs(shoulder.X-hip.X) / pose.Width,
		HeadForward:  math.Abs(nose.X-shoulder.X) / pose.Width,
		VerticalSpan: math.Abs(shoulder.Y-hip.Y) / pose.Height,
	}
	if math.IsNaN(m.TorsoXDrift) || math.IsNaN(m.HeadForward) || math.IsNaN(m.VerticalSpan) {
		return Measurements{}, false
	}
	return m, true
}

func (c *Classifier) uprightScore(m Measurements) float64 {
	p := c.policy
	var score float64
	if m.VerticalSpan > p.UprightMinVerticalSpan {
		score += p.VerticalSpanWeight
	}
	if m.TorsoXDrift < p.UprightMaxTorsoDrift {
		score += p.TorsoDriftWeight
	}
	if m.HeadForward < p.UprightMaxHeadForward {
		score += p.HeadForwardWeight
	}
	return score
}

func (c *Classifier) slouchScore(m Measurements) float64 {
	p := c.policy
	var score float64
	if m.VerticalSpan <= p.SlouchMaxVerticalSpan {
		score += p.VerticalSpanWeight
	}
	if m.TorsoXDrift >= p.SlouchMinTorsoDrift {
		score += p.TorsoDriftWeight
	}
	if m.HeadForward >= p.SlouchMinHeadForward {
		score += p.HeadForwardWeight
	}
	return score
}

func (c *Classifier) confidence(score float64) float64 {
	return math.Max(0, math.Min(0.5+score/2, c.policy.ConfidenceCap))
}

func (c *Classifier) uncertain() model.Classification {
	return model.Classification{Label: model.LabelUncertain, Confidence: c.policy.UncertainConfidence}
}

func usableDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
