package control

import (
	"image"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/debounce"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// State is the session lifecycle phase.
type State string

const (
	StateCalibrating State = "calibrating"
	StateActive      State = "active"
	StatePaused      State = "paused"
)

// Snapshot is a read-only view of the session after a tick, published to the
// UI collaborators.
type Snapshot struct {
	Mode  detector.Mode `json:"mode"`
	State State         `json:"state"`
	Tick  uint64        `json:"tick"`
	At    time.Time     `json:"at"`

	CalibrationFrames int      `json:"calibration_frames"`
	CalibrationTarget int      `json:"calibration_target"`
	Warnings          []string `json:"warnings,omitempty"`

	Detected bool                 `json:"detected"`
	Gesture  gesture.Gesture      `json:"gesture"`
	Rule     string               `json:"rule,omitempty"`
	Slots    []debounce.SlotState `json:"slots,omitempty"`

	Thresholds *gesture.Thresholds `json:"thresholds,omitempty"`

	Cursor      image.Point `json:"cursor"`
	CursorValid bool        `json:"cursor_valid"`

	LastAction *action.Event `json:"last_action,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

// Calibrated reports whether a baseline is in use.
func (s Snapshot) Calibrated() bool {
	return s.CalibrationTarget > 0 && s.CalibrationFrames >= s.CalibrationTarget
}
