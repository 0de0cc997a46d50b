package signal

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/mudra/internal/detector"
)

func TestExtractFace(t *testing.T) {
	face := detector.FacePose(0.42, 0.38, 0.30, 0.25)

	got, err := Extract(&detector.Frame{Face: &face}, detector.ModeEye)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Features{
		Mode:     detector.ModeEye,
		PointerX: 0.42,
		PointerY: 0.38,
		EyeLeft:  0.30,
		EyeRight: 0.25,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestOpennessGuardsZeroWidth(t *testing.T) {
	top := detector.Point3D{X: 0.5, Y: 0.49}
	bottom := detector.Point3D{X: 0.5, Y: 0.51}
	corner := detector.Point3D{X: 0.5, Y: 0.5}

	r := openness(top, bottom, corner, corner)
	if math.IsInf(r, 0) || math.IsNaN(r) {
		t.Fatalf("expected finite ratio, got %f", r)
	}
}

func TestExtractHand(t *testing.T) {
	tests := []struct {
		name    string
		hand    detector.HandLandmarks
		fingers [5]bool
		thumbUp bool
	}{
		{"pointing", detector.PointingLandmarks(), [5]bool{false, true, false, false, false}, false},
		{"thumbs up", detector.ThumbsUpLandmarks(), [5]bool{true, false, false, false, false}, true},
		{"thumbs down", detector.WithThumbDown(detector.ThumbsUpLandmarks()), [5]bool{true, false, false, false, false}, false},
		{"open palm", detector.OpenPalmLandmarks(), [5]bool{true, true, true, true, true}, true},
		{"pinch", detector.PinchLandmarks(), [5]bool{true, true, false, false, false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.hand
			got, err := Extract(&detector.Frame{Hand: &hand}, detector.ModeHand)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Fingers != tt.fingers {
				t.Errorf("expected fingers %v, got %v", tt.fingers, got.Fingers)
			}
			if got.ThumbPointsUp != tt.thumbUp {
				t.Errorf("expected thumb up %v, got %v", tt.thumbUp, got.ThumbPointsUp)
			}
			if got.PointerX != hand.Points[detector.IndexTip].X {
				t.Errorf("expected pointer at index tip")
			}
		})
	}
}

func TestThumbMirrored(t *testing.T) {
	hand := detector.ThumbsUpLandmarks()
	for i := range hand.Points {
		hand.Points[i].X = 1 - hand.Points[i].X
	}

	got, err := ExtractHand(&hand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Fingers[detector.Thumb] {
		t.Error("expected mirrored thumb to read as up")
	}
}

func TestPinchDistance(t *testing.T) {
	hand := detector.PinchLandmarks()

	got, err := ExtractHand(&hand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := got.Distances[ThumbIndex]; math.Abs(d-math.Hypot(0.02, 0.02)) > 1e-9 {
		t.Errorf("expected thumb-index distance %f, got %f", math.Hypot(0.02, 0.02), d)
	}
}

func TestExtractNoDetection(t *testing.T) {
	nan := detector.PointingLandmarks()
	nan.Points[detector.IndexTip].X = math.NaN()

	face := detector.FacePose(0.5, 0.5, 0.3, 0.3)
	face.Points[detector.LeftIris].Y = math.Inf(1)

	short := detector.FaceLandmarks{Points: make([]detector.Point3D, 100)}

	tests := []struct {
		name  string
		frame *detector.Frame
		mode  detector.Mode
	}{
		{"nil frame", nil, detector.ModeEye},
		{"empty frame eye", &detector.Frame{}, detector.ModeEye},
		{"empty frame hand", &detector.Frame{}, detector.ModeHand},
		{"hand frame in eye mode", &detector.Frame{Hand: &nan}, detector.ModeEye},
		{"non-finite hand", &detector.Frame{Hand: &nan}, detector.ModeHand},
		{"non-finite face", &detector.Frame{Face: &face}, detector.ModeEye},
		{"partial mesh", &detector.Frame{Face: &short}, detector.ModeEye},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Extract(tt.frame, tt.mode); err != ErrNoDetection {
				t.Errorf("expected ErrNoDetection, got %v", err)
			}
		})
	}
}

func TestSignal(t *testing.T) {
	f := Features{Mode: detector.ModeHand, PointerX: 0.2, PointerY: 0.3}

	if v, ok := f.Signal(PointerY); !ok || v != 0.3 {
		t.Errorf("expected pointer_y 0.3, got %f %v", v, ok)
	}
	if _, ok := f.Signal(EyeLeft); ok {
		t.Error("hand features should not carry eye signals")
	}
	if got := Calibrated(detector.ModeHand); len(got) != 2 {
		t.Errorf("expected 2 calibrated hand signals, got %v", got)
	}
}
