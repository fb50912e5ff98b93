package classifier

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid classifier policy")

// PolicyVersion identifies the default threshold set. Bump it whenever a
// default changes so stored events can be traced to the rules that made them.
const PolicyVersion = "2024.1"

// Policy holds the classifier thresholds. All distances are fractions of the
// frame width (horizontal) or height (vertical).
type Policy struct {
	Version string

	// Upright rules: each satisfied rule adds its weight to the upright score.
	UprightMinVerticalSpan float64 // verticalSpan > this
	UprightMaxTorsoDrift   float64 // torsoXDrift < this
	UprightMaxHeadForward  float64 // headForward < this

	// Slouch rules: each satisfied rule adds its weight to the slouch score.
	SlouchMaxVerticalSpan float64 // verticalSpan <= this
	SlouchMinTorsoDrift   float64 // torsoXDrift >= this
	SlouchMinHeadForward  float64 // headForward >= this

	VerticalSpanWeight float64
	TorsoDriftWeight   float64
	HeadForwardWeight  float64

	// DecisionScore is the minimum score for a good or slouched label.
	DecisionScore float64
	// ConfidenceCap bounds the confidence reported for good/slouched.
	ConfidenceCap float64
	// UncertainConfidence is reported with every uncertain label.
	UncertainConfidence float64
	// MinKeypointScore treats lower-scored landmarks as missing.
	MinKeypointScore float64
}

// DefaultPolicy returns the baseline thresholds. The gap between
// SlouchMaxVerticalSpan and UprightMinVerticalSpan is a dead zone that
// yields uncertain on its own.
func DefaultPolicy() Policy {
	return Policy{
		Version:                PolicyVersion,
		UprightMinVerticalSpan: 0.12,
		UprightMaxTorsoDrift:   0.05,
		UprightMaxHeadForward:  0.06,
		SlouchMaxVerticalSpan:  0.10,
		SlouchMinTorsoDrift:    0.08,
		SlouchMinHeadForward:   0.10,
		VerticalSpanWeight:     0.4,
		TorsoDriftWeight:       0.3,
		HeadForwardWeight:      0.3,
		DecisionScore:          0.75,
		ConfidenceCap:          0.95,
		UncertainConfidence:    0.3,
		MinKeypointScore:       0,
	}
}

// Validate checks that every threshold is a fraction and that the slouch
// band does not overlap the upright band.
func (p Policy) Validate() error {
	fractions := map[string]float64{
		"upright_min_vertical_span": p.UprightMinVerticalSpan,
		"upright_max_torso_drift":   p.UprightMaxTorsoDrift,
		"upright_max_head_forward":  p.UprightMaxHeadForward,
		"slouch_max_vertical_span":  p.SlouchMaxVerticalSpan,
		"slouch_min_torso_drift":    p.SlouchMinTorsoDrift,
		"slouch_min_head_forward":   p.SlouchMinHeadForward,
		"vertical_span_weight":      p.VerticalSpanWeight,
		"torso_drift_weight":        p.TorsoDriftWeight,
		"head_forward_weight":       p.HeadForwardWeight,
		"decision_score":            p.DecisionScore,
		"confidence_cap":            p.ConfidenceCap,
		"uncertain_confidence":      p.UncertainConfidence,
		"min_keypoint_score":        p.MinKeypointScore,
	}
	for name, v := range fractions {
		if v < 0 || v > 1 || v != v {
			return fmt.Errorf("%w: %s=%v must be within [0,1]", ErrInvalidPolicy, name, v)
		}
	}
	if p.DecisionScore == 0 {
		return fmt.Errorf("%w: decision_score must be positive", ErrInvalidPolicy)
	}
	if p.SlouchMaxVerticalSpan > p.UprightMinVerticalSpan {
		return fmt.Errorf("%w: slouch_max_vertical_span above upright_min_vertical_span", ErrInvalidPolicy)
	}
	if p.SlouchMinTorsoDrift < p.UprightMaxTorsoDrift {
		return fmt.Errorf("%w: slouch_min_torso_drift below upright_max_torso_drift", ErrInvalidPolicy)
	}
	if p.SlouchMinHeadForward < p.UprightMaxHeadForward {
		return fmt.Errorf("%w: slouch_min_head_forward below upright_max_head_forward", ErrInvalidPolicy)
	}
	return nil
}
