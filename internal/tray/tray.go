// Package tray provides the system tray menu for mudra.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/control"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onSettings    func()
	onQuit        func()
	enabled       bool
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuState      *systray.MenuItem
	menuLastAction *systray.MenuItem
	shownState     string
	shownAction    string
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback for the recalibrate menu item.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture control")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem("State: starting", "Control state")
	t.menuState.Disable()
	t.menuLastAction = systray.AddMenuItem("Last: none", "Last dispatched action")
	t.menuLastAction.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRecalibrate := systray.AddMenuItem("Recalibrate", "Restart the calibration warm-up")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.invoke(func() func() { return t.onRecalibrate })
			case <-menuSettings.ClickedCh:
				t.invoke(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.invoke(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	enabled := !t.enabled
	t.setEnabledLocked(enabled)
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// invoke runs the callback returned by get, read under the lock.
func (t *Tray) invoke(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// Update shows the state and last action of snap and follows pauses made
// elsewhere. Menu titles are only rewritten when their text changes, so
// Update may be called every tick.
func (t *Tray) Update(snap control.Snapshot) {
	state, last := describe(snap)

	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled := snap.State != control.StatePaused; enabled != t.enabled {
		t.setEnabledLocked(enabled)
	}

	if t.menuState != nil && state != t.shownState {
		t.menuState.SetTitle(state)
		t.shownState = state
	}
	if t.menuLastAction != nil && last != t.shownAction {
		t.menuLastAction.SetTitle(last)
		t.shownAction = last
	}
}

// describe renders the menu titles for snap.
func describe(snap control.Snapshot) (state, last string) {
	switch {
	case snap.State == control.StateCalibrating:
		state = fmt.Sprintf("Calibrating %d/%d", snap.CalibrationFrames, snap.CalibrationTarget)
	case snap.LastError != "":
		state = "Error: " + snap.LastError
	case len(snap.Warnings) > 0:
		state = fmt.Sprintf("%s (%d warnings)", snap.State, len(snap.Warnings))
	default:
		state = fmt.Sprintf("%s: %s", snap.State, snap.Gesture)
	}

	last = "Last: none"
	if snap.LastAction != nil {
		last = "Last: " + snap.LastAction.String()
	}
	return state, last
}

// SetEnabled updates the toggle without invoking the toggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setEnabledLocked(enabled)
}

func (t *Tray) setEnabledLocked(enabled bool) {
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// Quit closes the tray, returning from Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
