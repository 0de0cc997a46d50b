package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Mode selects which landmark model a detector runs.
type Mode string

const (
	// ModeEye tracks a face mesh with refined irises.
	ModeEye Mode = "eye"
	// ModeHand tracks a single hand skeleton.
	ModeHand Mode = "hand"
)

// Frame is one tick's worth of landmarks. It is immutable once produced and is
// owned by the control loop for the duration of a single tick.
// A frame with neither a face nor a hand means nothing was detected.
type Frame struct {
	Face      *FaceLandmarks `json:"face,omitempty"`
	Hand      *HandLandmarks `json:"hand,omitempty"`
	Timestamp time.Time      `json:"-"`
}

// Empty reports whether the frame carries no detection.
func (f *Frame) Empty() bool {
	return f == nil || (f.Face == nil && f.Hand == nil)
}

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected landmarks.
	// Returns an empty frame if nothing was detected.
	Detect(frame *gocv.Mat) (*Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// Mode selects face mesh or hand tracking.
	Mode Mode

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeEye,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
