package detector

// Finger positions used by HandPose, thumb first.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
)

// fingerBase holds the MCP joint of each non-thumb finger for the synthetic right hand.
var fingerBase = [5]Point3D{
	Index:  {X: 0.55, Y: 0.60},
	Middle: {X: 0.50, Y: 0.58},
	Ring:   {X: 0.45, Y: 0.60},
	Pinky:  {X: 0.40, Y: 0.63},
}

var fingerJoints = [5][4]int{
	Index:  {IndexMCP, IndexPIP, IndexDIP, IndexTip},
	Middle: {MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	Ring:   {RingMCP, RingPIP, RingDIP, RingTip},
	Pinky:  {PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// HandPose builds a synthetic mirrored right hand with the given fingers raised.
// The thumb, when raised, is extended sideways and points upward.
func HandPose(up [5]bool) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75}
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70}
	if up[Thumb] {
		h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.66}
		h.Points[ThumbTip] = Point3D{X: 0.68, Y: 0.62}
	} else {
		h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.66}
		h.Points[ThumbTip] = Point3D{X: 0.56, Y: 0.66}
	}

	for f := Index; f <= Pinky; f++ {
		base := fingerBase[f]
		j := fingerJoints[f]
		h.Points[j[0]] = base
		if up[f] {
			h.Points[j[1]] = Point3D{X: base.X, Y: base.Y - 0.10}
			h.Points[j[2]] = Point3D{X: base.X, Y: base.Y - 0.18}
			h.Points[j[3]] = Point3D{X: base.X, Y: base.Y - 0.25}
		} else {
			h.Points[j[1]] = Point3D{X: base.X, Y: base.Y - 0.06}
			h.Points[j[2]] = Point3D{X: base.X, Y: base.Y - 0.02}
			h.Points[j[3]] = Point3D{X: base.X, Y: base.Y + 0.01}
		}
	}

	return h
}

// WithThumbTip moves the thumb tip next to the given landmark while keeping the
// thumb extended, as when pinching that fingertip.
func WithThumbTip(h HandLandmarks, target int) HandLandmarks {
	t := h.Points[target]
	h.Points[ThumbTip] = Point3D{X: t.X + 0.02, Y: t.Y + 0.02}
	h.Points[ThumbIP] = Point3D{X: t.X - 0.01, Y: t.Y + 0.06}
	return h
}

// WithThumbDown points an extended thumb toward the floor.
func WithThumbDown(h HandLandmarks) HandLandmarks {
	h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.74}
	h.Points[ThumbTip] = Point3D{X: 0.68, Y: 0.80}
	return h
}

// WithPointer translates the whole hand so that the index tip lands at (x, y).
func WithPointer(h HandLandmarks, x, y float64) HandLandmarks {
	dx := x - h.Points[IndexTip].X
	dy := y - h.Points[IndexTip].Y
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// ThumbsUpLandmarks returns a preset hand with only the thumb raised and pointing up.
func ThumbsUpLandmarks() HandLandmarks {
	return HandPose([5]bool{Thumb: true})
}

// OpenPalmLandmarks returns a preset hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return HandPose([5]bool{true, true, true, true, true})
}

// PointingLandmarks returns a preset hand with only the index finger raised.
func PointingLandmarks() HandLandmarks {
	return HandPose([5]bool{Index: true})
}

// PinchLandmarks returns a preset hand pinching the index tip with the thumb.
func PinchLandmarks() HandLandmarks {
	return WithThumbTip(HandPose([5]bool{Thumb: true, Index: true}), IndexTip)
}

// eyeWidth is the horizontal span of each synthetic eye.
const eyeWidth = 0.05

// FacePose builds a synthetic face mesh whose irises sit at (x, y) and whose
// eye-openness ratios equal left and right. Unused mesh points are parked at
// the frame center.
func FacePose(x, y, left, right float64) FaceLandmarks {
	f := FaceLandmarks{Points: make([]Point3D, NumFaceLandmarks), Score: 0.95}
	for i := range f.Points {
		f.Points[i] = Point3D{X: 0.5, Y: 0.5}
	}

	f.Points[LeftIris] = Point3D{X: x - 0.03, Y: y}
	f.Points[RightIris] = Point3D{X: x + 0.03, Y: y}

	setEye := func(outer, inner, top, bottom int, cx, ratio float64) {
		f.Points[outer] = Point3D{X: cx - eyeWidth/2, Y: y}
		f.Points[inner] = Point3D{X: cx + eyeWidth/2, Y: y}
		gap := ratio * eyeWidth
		f.Points[top] = Point3D{X: cx, Y: y - gap/2}
		f.Points[bottom] = Point3D{X: cx, Y: y + gap/2}
	}
	setEye(LeftEyeOuter, LeftEyeInner, LeftEyeTop, LeftEyeBottom, x-0.03, left)
	setEye(RightEyeInner, RightEyeOuter, RightEyeTop, RightEyeBottom, x+0.03, right)

	return f
}
