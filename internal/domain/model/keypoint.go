package model

import "math"

// KeypointName identifies an anatomical landmark produced by the pose model.
type KeypointName string

// Landmarks used by the posture classifier. The pose model may emit more;
// unknown names are carried through and ignored.
const (
	Nose          KeypointName = "nose"
	LeftEye       KeypointName = "left_eye"
	RightEye      KeypointName = "right_eye"
	LeftEar       KeypointName = "left_ear"
	RightEar      KeypointName = "right_ear"
	LeftShoulder  KeypointName = "left_shoulder"
	RightShoulder KeypointName = "right_shoulder"
	LeftHip       KeypointName = "left_hip"
	RightHip      KeypointName = "right_hip"
)

// RequiredKeypoints lists the landmarks a frame must carry to be classified.
var RequiredKeypoints = []KeypointName{Nose, LeftShoulder, RightShoulder, LeftHip, RightHip}

// Keypoint is a named 2D point in pixel coordinates with the model's score.
type Keypoint struct {
	Name  KeypointName `json:"name"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Score float64      `json:"score"`
}

// Finite reports whether all numeric fields are usable.
func (k Keypoint) Finite() bool {
	return finite(k.X) && finite(k.Y) && finite(k.Score)
}

// Pose is the per-frame output of a keypoint source. It lives for one frame
// and is never persisted.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	// Width and Height are the frame dimensions in pixels.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether no person was detected.
func (p Pose) Empty() bool { return len(p.Keypoints) == 0 }

// Lookup returns the first keypoint with the given name.
func (p Pose) Lookup(name KeypointName) (Keypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Keypoint) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
