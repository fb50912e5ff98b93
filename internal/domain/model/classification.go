// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownLabel is returned when a label string is not part of the vocabulary.
var ErrUnknownLabel = errors.New("unknown posture label")

// Label is the classifier's output category.
type Label string

const (
	LabelGood      Label = "good"
	LabelSlouched  Label = "slouched"
	LabelNoPerson  Label = "no_person"
	LabelUncertain Label = "uncertain"
)

// ParseLabel converts a wire string to a Label.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.TrimSpace(s)); l {
	case LabelGood, LabelSlouched, LabelNoPerson, LabelUncertain:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

// Persistable reports whether events with this label may ever be stored.
func (l Label) Persistable() bool {
	return l == LabelGood || l == LabelSlouched
}

func (l Label) String() string { return string(l) }

// Classification is the immutable per-frame result of the classifier.
type Classification struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// PostureEvent is an accepted classification recorded in the event store.
// It never carries image or keypoint data.
type PostureEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Label      Label     `json:"label"`
	Confidence float64   `json:"confidence"`
}

// TrackRequest is a fire-and-forget write submitted from the frame loop.
type TrackRequest struct {
	Label      Label
	Confidence float64
	ObservedAt time.Time
}
