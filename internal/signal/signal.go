// Package signal derives the scalar and boolean features the classifier and
// calibrator work on from a single landmark frame. Everything here is a pure
// function of its input.
package signal

import (
	"errors"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoDetection is returned when a frame carries no usable landmark set for
// the requested mode.
var ErrNoDetection = errors.New("no detection")

// epsilon keeps the eye-openness ratio finite when the eye width underflows.
const epsilon = 1e-6

// Name identifies a calibrated scalar signal.
type Name string

const (
	PointerX Name = "pointer_x"
	PointerY Name = "pointer_y"
	EyeLeft  Name = "eye_left"
	EyeRight Name = "eye_right"
)

// Distance identifies a named fingertip pair.
type Distance string

const (
	ThumbIndex  Distance = "thumb_index"
	ThumbMiddle Distance = "thumb_middle"
	IndexMiddle Distance = "index_middle"
)

// Features is the feature vector of one frame.
type Features struct {
	Mode detector.Mode `json:"mode"`

	PointerX float64 `json:"pointer_x"`
	PointerY float64 `json:"pointer_y"`

	// Eye mode only.
	EyeLeft  float64 `json:"eye_left,omitempty"`
	EyeRight float64 `json:"eye_right,omitempty"`

	// Hand mode only. Fingers is indexed thumb first.
	Fingers       [5]bool              `json:"fingers"`
	Distances     map[Distance]float64 `json:"distances,omitempty"`
	ThumbPointsUp bool                 `json:"thumb_points_up"`

	// Hand keeps the source landmarks for user pose templates.
	Hand *detector.HandLandmarks `json:"-"`
}

// Signal returns the named scalar, if the feature vector carries it.
func (f Features) Signal(name Name) (float64, bool) {
	switch name {
	case PointerX:
		return f.PointerX, true
	case PointerY:
		return f.PointerY, true
	case EyeLeft:
		return f.EyeLeft, f.Mode == detector.ModeEye
	case EyeRight:
		return f.EyeRight, f.Mode == detector.ModeEye
	}
	return 0, false
}

// FingersUp counts raised fingers.
func (f Features) FingersUp() int {
	n := 0
	for _, up := range f.Fingers {
		if up {
			n++
		}
	}
	return n
}

// Calibrated lists the signals the calibrator tracks in mode.
func Calibrated(mode detector.Mode) []Name {
	if mode == detector.ModeHand {
		return []Name{PointerX, PointerY}
	}
	return []Name{PointerX, PointerY, EyeLeft, EyeRight}
}

// Extract derives features from frame for the given mode.
func Extract(frame *detector.Frame, mode detector.Mode) (Features, error) {
	if frame == nil {
		return Features{}, ErrNoDetection
	}
	if mode == detector.ModeHand {
		return ExtractHand(frame.Hand)
	}
	return ExtractFace(frame.Face)
}

// ExtractFace derives the iris pointer and per-eye openness ratios.
func ExtractFace(face *detector.FaceLandmarks) (Features, error) {
	if !face.Complete() {
		return Features{}, ErrNoDetection
	}
	p := face.Points
	for _, i := range faceIndices {
		if !p[i].Finite() {
			return Features{}, ErrNoDetection
		}
	}

	return Features{
		Mode:     detector.ModeEye,
		PointerX: (p[detector.LeftIris].X + p[detector.RightIris].X) / 2,
		PointerY: (p[detector.LeftIris].Y + p[detector.RightIris].Y) / 2,
		EyeLeft:  openness(p[detector.LeftEyeTop], p[detector.LeftEyeBottom], p[detector.LeftEyeOuter], p[detector.LeftEyeInner]),
		EyeRight: openness(p[detector.RightEyeTop], p[detector.RightEyeBottom], p[detector.RightEyeInner], p[detector.RightEyeOuter]),
	}, nil
}

var faceIndices = []int{
	detector.LeftIris, detector.RightIris,
	detector.LeftEyeTop, detector.LeftEyeBottom, detector.LeftEyeOuter, detector.LeftEyeInner,
	detector.RightEyeTop, detector.RightEyeBottom, detector.RightEyeInner, detector.RightEyeOuter,
}

func openness(top, bottom, left, right detector.Point3D) float64 {
	return math.Abs(top.Y-bottom.Y) / (math.Abs(left.X-right.X) + epsilon)
}

// ExtractHand derives finger states, fingertip distances and the index-tip pointer.
func ExtractHand(hand *detector.HandLandmarks) (Features, error) {
	if hand == nil {
		return Features{}, ErrNoDetection
	}
	p := hand.Points
	for i := range p {
		if !p[i].Finite() {
			return Features{}, ErrNoDetection
		}
	}

	f := Features{
		Mode:     detector.ModeHand,
		PointerX: p[detector.IndexTip].X,
		PointerY: p[detector.IndexTip].Y,
		Distances: map[Distance]float64{
			ThumbIndex:  planar(p[detector.ThumbTip], p[detector.IndexTip]),
			ThumbMiddle: planar(p[detector.ThumbTip], p[detector.MiddleTip]),
			IndexMiddle: planar(p[detector.IndexTip], p[detector.MiddleTip]),
		},
		ThumbPointsUp: p[detector.ThumbTip].Y < p[detector.ThumbMCP].Y,
		Hand:          hand,
	}

	// The thumb extends sideways, so compare along x on whichever side of the
	// palm it sits. This holds for mirrored and unmirrored hands.
	tip, ip := p[detector.ThumbTip].X, p[detector.ThumbIP].X
	if tip > p[detector.PinkyMCP].X {
		f.Fingers[detector.Thumb] = tip > ip
	} else {
		f.Fingers[detector.Thumb] = tip < ip
	}

	f.Fingers[detector.Index] = p[detector.IndexTip].Y < p[detector.IndexPIP].Y
	f.Fingers[detector.Middle] = p[detector.MiddleTip].Y < p[detector.MiddlePIP].Y
	f.Fingers[detector.Ring] = p[detector.RingTip].Y < p[detector.RingPIP].Y
	f.Fingers[detector.Pinky] = p[detector.PinkyTip].Y < p[detector.PinkyPIP].Y

	return f, nil
}

func planar(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
