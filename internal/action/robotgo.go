package action

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// robotgoKeys maps symbolic key names to robotgo key names.
var robotgoKeys = map[string]string{
	KeyVolumeUp:       "audio_vol_up",
	KeyVolumeDown:     "audio_vol_down",
	KeyBrightnessUp:   "lights_mon_up",
	KeyBrightnessDown: "lights_mon_down",
	KeyPlayPause:      "audio_play",
	KeyNextTrack:      "audio_next",
	KeyPrevTrack:      "audio_prev",
}

// RobotgoSink injects input events into the local desktop session.
type RobotgoSink struct{}

// NewRobotgoSink creates a RobotgoSink.
func NewRobotgoSink() *RobotgoSink {
	return &RobotgoSink{}
}

// ScreenSize returns the primary display size in pixels.
func ScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}

func (RobotgoSink) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (RobotgoSink) Click(b Button) error {
	robotgo.Click(string(b))
	return nil
}

func (RobotgoSink) DoubleClick(b Button) error {
	robotgo.Click(string(b), true)
	return nil
}

// Scroll scrolls vertically; positive delta scrolls up.
func (RobotgoSink) Scroll(delta int) error {
	robotgo.Scroll(0, delta)
	return nil
}

func (RobotgoSink) MouseDown(b Button) error {
	if err := robotgo.Toggle(string(b)); err != nil {
		return fmt.Errorf("press %s: %w", b, err)
	}
	return nil
}

func (RobotgoSink) MouseUp(b Button) error {
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return fmt.Errorf("release %s: %w", b, err)
	}
	return nil
}

// PressKey taps the key for name. Unknown names are passed to robotgo as is.
func (RobotgoSink) PressKey(name string) error {
	key, ok := robotgoKeys[name]
	if !ok {
		key = name
	}
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("tap %s: %w", name, err)
	}
	return nil
}
