// Package config holds every tunable of the control loop and the process
// around it. Values start from DefaultConfig, are overlaid by an optional JSON
// file, then by the settings table, then by command-line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/debounce"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// MaxWarmupFrames bounds the calibration warm-up, a little over five minutes
// at 30 FPS.
const MaxWarmupFrames = 10000

// Config is the full configuration surface.
type Config struct {
	// Mode selects eye (face mesh) or hand control.
	Mode detector.Mode

	// WarmupFrames is the number of valid frames observed before the baseline freezes.
	WarmupFrames int
	// ConfirmFrames is the number of consecutive frames a gesture must persist.
	ConfirmFrames int
	// MinActionInterval is the global gap enforced between any two actions.
	MinActionInterval time.Duration
	// DoubleWindow is the maximum gap between two pulses merged into a double action.
	DoubleWindow time.Duration
	// EdgeExpansion is the fraction of the calibrated range trimmed from each end
	// so that the screen edge is reached before the calibrated extreme.
	EdgeExpansion float64
	// SmoothingWindowSize is the number of cursor positions averaged.
	SmoothingWindowSize int
	// SmoothingMinFill is the number of positions required before smoothing starts.
	SmoothingMinFill int
	// SmoothingWeighted favours recent positions with linear weights.
	SmoothingWeighted bool
	// Sensitivity is the k in mean - k*stddev.
	Sensitivity float64

	// PinchDistance is the fingertip distance below which two tips touch.
	PinchDistance float64
	// ThumbAction decides what the thumb-only pose controls.
	ThumbAction gesture.ThumbAction
	// WinkClosedFraction is the fraction of its resting openness a winking eye must fall below.
	WinkClosedFraction float64
	// OpenFraction is the fraction of its resting openness the other eye must stay above.
	OpenFraction float64
	// FallbackEyeThreshold replaces the adaptive threshold for a degenerate signal.
	FallbackEyeThreshold float64

	// ScrollAmount is the wheel delta per scroll action.
	ScrollAmount int
	// DispatchQueueSize bounds the discrete action queue.
	DispatchQueueSize int
	// ScreenWidth and ScreenHeight are detected at startup when zero.
	ScreenWidth  int
	ScreenHeight int

	CameraID   int
	ListenAddr string
	PluginDir  string
	DataDir    string
}

// DefaultConfig returns the eye-mode defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                 detector.ModeEye,
		WarmupFrames:         120,
		ConfirmFrames:        2,
		MinActionInterval:    600 * time.Millisecond,
		DoubleWindow:         700 * time.Millisecond,
		EdgeExpansion:        0.15,
		SmoothingWindowSize:  5,
		SmoothingMinFill:     3,
		SmoothingWeighted:    false,
		Sensitivity:          1.8,
		PinchDistance:        0.06,
		ThumbAction:          gesture.ThumbScroll,
		WinkClosedFraction:   0.65,
		OpenFraction:         0.82,
		FallbackEyeThreshold: 0.02,
		ScrollAmount:         5,
		DispatchQueueSize:    16,
		CameraID:             0,
		ListenAddr:           ":8080",
		PluginDir:            "./plugins",
		DataDir:              "~/.mudra",
	}
}

// DefaultConfigFor returns the defaults for mode. Hand mode smooths with
// recency weights.
func DefaultConfigFor(mode detector.Mode) Config {
	c := DefaultConfig()
	c.Mode = mode
	c.SmoothingWeighted = mode == detector.ModeHand
	return c
}

// Validate rejects values the control loop cannot run with.
func (c Config) Validate() error {
	if name, ok := c.nonFinite(); ok {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalid, name)
	}

	switch {
	case c.Mode != detector.ModeEye && c.Mode != detector.ModeHand:
		return fmt.Errorf("%w: mode must be %q or %q, got %q", ErrInvalid, detector.ModeEye, detector.ModeHand, c.Mode)
	case c.WarmupFrames < 1 || c.WarmupFrames > MaxWarmupFrames:
		return fmt.Errorf("%w: warmup_frames must be in [1, %d], got %d", ErrInvalid, MaxWarmupFrames, c.WarmupFrames)
	case c.ConfirmFrames < 1:
		return fmt.Errorf("%w: confirm_frames must be positive, got %d", ErrInvalid, c.ConfirmFrames)
	case c.MinActionInterval < 0:
		return fmt.Errorf("%w: min_action_interval must be non-negative, got %s", ErrInvalid, c.MinActionInterval)
	case c.DoubleWindow < 0:
		return fmt.Errorf("%w: double_window must be non-negative, got %s", ErrInvalid, c.DoubleWindow)
	case c.EdgeExpansion < 0 || c.EdgeExpansion >= 0.5:
		return fmt.Errorf("%w: edge_expansion must be in [0, 0.5), got %g", ErrInvalid, c.EdgeExpansion)
	case c.SmoothingWindowSize < 1:
		return fmt.Errorf("%w: smoothing_window_size must be positive, got %d", ErrInvalid, c.SmoothingWindowSize)
	case c.SmoothingMinFill < 1 || c.SmoothingMinFill > c.SmoothingWindowSize:
		return fmt.Errorf("%w: smoothing_min_fill must be in [1, %d], got %d", ErrInvalid, c.SmoothingWindowSize, c.SmoothingMinFill)
	case c.Sensitivity < 0:
		return fmt.Errorf("%w: sensitivity must be non-negative, got %g", ErrInvalid, c.Sensitivity)
	case c.PinchDistance <= 0:
		return fmt.Errorf("%w: pinch_distance must be positive, got %g", ErrInvalid, c.PinchDistance)
	case c.ThumbAction != gesture.ThumbScroll && c.ThumbAction != gesture.ThumbBrightness:
		return fmt.Errorf("%w: thumb_action must be %q or %q, got %q", ErrInvalid, gesture.ThumbScroll, gesture.ThumbBrightness, c.ThumbAction)
	case c.WinkClosedFraction <= 0 || c.WinkClosedFraction > 1:
		return fmt.Errorf("%w: wink_closed_fraction must be in (0, 1], got %g", ErrInvalid, c.WinkClosedFraction)
	case c.OpenFraction <= 0 || c.OpenFraction > 1:
		return fmt.Errorf("%w: open_fraction must be in (0, 1], got %g", ErrInvalid, c.OpenFraction)
	case c.FallbackEyeThreshold <= 0:
		return fmt.Errorf("%w: fallback_eye_threshold must be positive, got %g", ErrInvalid, c.FallbackEyeThreshold)
	case c.ScrollAmount < 1:
		return fmt.Errorf("%w: scroll_amount must be positive, got %d", ErrInvalid, c.ScrollAmount)
	case c.DispatchQueueSize < 1:
		return fmt.Errorf("%w: dispatch_queue_size must be positive, got %d", ErrInvalid, c.DispatchQueueSize)
	case c.ScreenWidth < 0 || c.ScreenHeight < 0:
		return fmt.Errorf("%w: screen size must be non-negative, got %dx%d", ErrInvalid, c.ScreenWidth, c.ScreenHeight)
	}
	return nil
}

// nonFinite reports the first float setting that is NaN or infinite. NaN
// passes every range check in Validate.
func (c Config) nonFinite() (string, bool) {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"edge_expansion", c.EdgeExpansion},
		{"sensitivity", c.Sensitivity},
		{"pinch_distance", c.PinchDistance},
		{"wink_closed_fraction", c.WinkClosedFraction},
		{"open_fraction", c.OpenFraction},
		{"fallback_eye_threshold", c.FallbackEyeThreshold},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return f.name, true
		}
	}
	return "", false
}

// Gesture returns the classifier tunables.
func (c Config) Gesture() gesture.Config {
	return gesture.Config{
		Sensitivity:          c.Sensitivity,
		FallbackEyeThreshold: c.FallbackEyeThreshold,
		WinkClosedFraction:   c.WinkClosedFraction,
		OpenFraction:         c.OpenFraction,
		PinchDistance:        c.PinchDistance,
		ThumbAction:          c.ThumbAction,
	}
}

// Debounce returns the confirmation timing.
func (c Config) Debounce() debounce.Config {
	return debounce.Config{
		ConfirmFrames:     c.ConfirmFrames,
		MinActionInterval: c.MinActionInterval,
		DoubleWindow:      c.DoubleWindow,
	}
}
