// Package gesture classifies a feature vector into one gesture of a closed set.
package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/signal"
)

// Gesture is the symbolic result of classifying one frame.
type Gesture int

const (
	None Gesture = iota
	CursorMove
	PrimaryAction
	SecondaryAction
	ScrollUp
	ScrollDown
	VolumeUp
	VolumeDown
	BrightnessUp
	BrightnessDown
	MediaPlayPause
	MediaNext
	MediaPrev
	DragStart
	DragEnd
)

var names = [...]string{
	None:            "none",
	CursorMove:      "cursor_move",
	PrimaryAction:   "primary_action",
	SecondaryAction: "secondary_action",
	ScrollUp:        "scroll_up",
	ScrollDown:      "scroll_down",
	VolumeUp:        "volume_up",
	VolumeDown:      "volume_down",
	BrightnessUp:    "brightness_up",
	BrightnessDown:  "brightness_down",
	MediaPlayPause:  "media_play_pause",
	MediaNext:       "media_next",
	MediaPrev:       "media_prev",
	DragStart:       "drag_start",
	DragEnd:         "drag_end",
}

// All returns every gesture in declaration order.
func All() []Gesture {
	out := make([]Gesture, len(names))
	for i := range names {
		out[i] = Gesture(i)
	}
	return out
}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(names) {
		return fmt.Sprintf("gesture(%d)", int(g))
	}
	return names[g]
}

// Valid reports whether g is a member of the closed set.
func (g Gesture) Valid() bool {
	return g >= 0 && int(g) < len(names)
}

// Discrete reports whether g triggers a one-shot action rather than pointer motion.
func (g Gesture) Discrete() bool {
	return g.Valid() && g != None && g != CursorMove
}

// Parse returns the gesture with the given name.
func Parse(s string) (Gesture, error) {
	for i, n := range names {
		if n == s {
			return Gesture(i), nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ThumbAction selects what the thumb-only hand pose controls.
type ThumbAction string

const (
	ThumbScroll     ThumbAction = "scroll"
	ThumbBrightness ThumbAction = "brightness"
)

// Classifier maps a feature vector to exactly one gesture. Implementations
// are deterministic for a fixed configuration.
type Classifier interface {
	Classify(f signal.Features) Gesture
}

// Config holds the classifier tunables.
type Config struct {
	// Sensitivity is k in the adaptive threshold mean - k*stddev.
	Sensitivity float64
	// FallbackEyeThreshold replaces the adaptive threshold for a signal with no variation.
	FallbackEyeThreshold float64
	// WinkClosedFraction is the fraction of its resting openness a winking eye must fall below.
	WinkClosedFraction float64
	// OpenFraction is the fraction of its resting openness the other eye must stay above.
	OpenFraction float64
	// PinchDistance is the fingertip distance below which two tips touch.
	PinchDistance float64
	// ThumbAction decides what the thumb-only pose controls.
	ThumbAction ThumbAction
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Sensitivity:          1.8,
		FallbackEyeThreshold: 0.02,
		WinkClosedFraction:   0.65,
		OpenFraction:         0.82,
		PinchDistance:        0.06,
		ThumbAction:          ThumbScroll,
	}
}
