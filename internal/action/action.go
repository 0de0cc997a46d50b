// Package action turns confirmed gestures into abstract input events and
// delivers them to an input sink without blocking the control loop.
package action

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ayusman/mudra/internal/debounce"
	"github.com/ayusman/mudra/internal/gesture"
)

var (
	// ErrUnsupported is returned by a sink that cannot perform an event.
	ErrUnsupported = errors.New("action not supported by sink")
	// ErrPluginFailed is returned by PluginSink when the bound plugin could
	// not perform the key. Chain moves on to the next sink.
	ErrPluginFailed = errors.New("plugin failed")
	// ErrQueueFull is returned when the dispatch queue has no room.
	ErrQueueFull = errors.New("dispatch queue full")
)

// Kind identifies the input primitive an event asks for.
type Kind string

const (
	KindMove        Kind = "move"
	KindClick       Kind = "click"
	KindDoubleClick Kind = "double_click"
	KindScroll      Kind = "scroll"
	KindMouseDown   Kind = "mouse_down"
	KindMouseUp     Kind = "mouse_up"
	KindKey         Kind = "key"
)

// Button is a mouse button name.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Symbolic key names understood by sinks and key plugins.
const (
	KeyVolumeUp       = "volumeup"
	KeyVolumeDown     = "volumedown"
	KeyBrightnessUp   = "brightnessup"
	KeyBrightnessDown = "brightnessdown"
	KeyPlayPause      = "playpause"
	KeyNextTrack      = "nexttrack"
	KeyPrevTrack      = "prevtrack"
)

// Event is one abstract input action.
type Event struct {
	Kind      Kind            `json:"kind"`
	Gesture   gesture.Gesture `json:"gesture"`
	Timestamp time.Time       `json:"timestamp"`
	Point     image.Point     `json:"point"`
	Button    Button          `json:"button,omitempty"`
	// Delta is the scroll amount; positive scrolls up.
	Delta int    `json:"delta,omitempty"`
	Key   string `json:"key,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d,%d)", e.Point.X, e.Point.Y)
	case KindClick, KindDoubleClick, KindMouseDown, KindMouseUp:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Button)
	case KindScroll:
		return fmt.Sprintf("scroll(%d)", e.Delta)
	case KindKey:
		return fmt.Sprintf("key(%s)", e.Key)
	}
	return string(e.Kind)
}

// Sink executes input primitives. Implementations return ErrUnsupported for
// primitives they do not handle.
type Sink interface {
	MoveTo(x, y int) error
	Click(b Button) error
	DoubleClick(b Button) error
	Scroll(delta int) error
	MouseDown(b Button) error
	MouseUp(b Button) error
	PressKey(name string) error
}

// Execute performs e on s.
func Execute(s Sink, e Event) error {
	switch e.Kind {
	case KindMove:
		return s.MoveTo(e.Point.X, e.Point.Y)
	case KindClick:
		return s.Click(e.Button)
	case KindDoubleClick:
		return s.DoubleClick(e.Button)
	case KindScroll:
		return s.Scroll(e.Delta)
	case KindMouseDown:
		return s.MouseDown(e.Button)
	case KindMouseUp:
		return s.MouseUp(e.Button)
	case KindKey:
		return s.PressKey(e.Key)
	}
	return fmt.Errorf("execute %q: %w", e.Kind, ErrUnsupported)
}

var gestureKeys = map[gesture.Gesture]string{
	gesture.VolumeUp:       KeyVolumeUp,
	gesture.VolumeDown:     KeyVolumeDown,
	gesture.BrightnessUp:   KeyBrightnessUp,
	gesture.BrightnessDown: KeyBrightnessDown,
	gesture.MediaPlayPause: KeyPlayPause,
	gesture.MediaNext:      KeyNextTrack,
	gesture.MediaPrev:      KeyPrevTrack,
}

// Move returns a cursor move to p.
func Move(p image.Point, at time.Time) Event {
	return Event{Kind: KindMove, Gesture: gesture.CursorMove, Timestamp: at, Point: p}
}

// ForPulse maps a confirmed pulse to the event it triggers. Point is the
// cursor position at the time of the pulse. It returns false for pulses
// that carry no discrete action.
//
// A combined secondary pulse is a left double click, matching the double
// right-wink gesture.
func ForPulse(p debounce.Pulse, point image.Point, scrollAmount int) (Event, bool) {
	e := Event{Gesture: p.Gesture, Timestamp: p.At, Point: point}

	switch p.Gesture {
	case gesture.PrimaryAction:
		e.Kind, e.Button = KindClick, ButtonLeft
		if p.Combined {
			e.Kind = KindDoubleClick
		}
	case gesture.SecondaryAction:
		e.Kind, e.Button = KindClick, ButtonRight
		if p.Combined {
			e.Kind, e.Button = KindDoubleClick, ButtonLeft
		}
	case gesture.ScrollUp:
		e.Kind, e.Delta = KindScroll, scrollAmount
	case gesture.ScrollDown:
		e.Kind, e.Delta = KindScroll, -scrollAmount
	case gesture.DragStart:
		e.Kind, e.Button = KindMouseDown, ButtonLeft
	case gesture.DragEnd:
		e.Kind, e.Button = KindMouseUp, ButtonLeft
	default:
		key, ok := gestureKeys[p.Gesture]
		if !ok {
			return Event{}, false
		}
		e.Kind, e.Key = KindKey, key
	}
	return e, true
}
