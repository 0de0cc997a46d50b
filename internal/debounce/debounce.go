// Package debounce turns per-frame gesture observations into confirmed,
// rate-limited pulses. Each debounce-able gesture owns a slot; all slots share
// one global action gate.
package debounce

import (
	"time"

	"github.com/ayusman/mudra/internal/clock"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Config holds the confirmation timing.
type Config struct {
	// ConfirmFrames is the number of consecutive frames before a gesture confirms.
	ConfirmFrames int
	// MinActionInterval must strictly elapse between any two pulses.
	MinActionInterval time.Duration
	// DoubleWindow is the longest gap between two pulses of a slot that merge.
	DoubleWindow time.Duration
}

// DefaultConfig returns the default timing.
func DefaultConfig() Config {
	return Config{
		ConfirmFrames:     2,
		MinActionInterval: 600 * time.Millisecond,
		DoubleWindow:      700 * time.Millisecond,
	}
}

// Slot declares a debounce-able gesture.
type Slot struct {
	Gesture gesture.Gesture
	// Combined marks slots whose second quick pulse upgrades to a double action.
	Combined bool
}

// SlotsFor returns the slots of mode in priority order.
func SlotsFor(mode detector.Mode) []Slot {
	if mode == detector.ModeEye {
		return []Slot{
			{Gesture: gesture.PrimaryAction},
			{Gesture: gesture.SecondaryAction, Combined: true},
		}
	}
	slots := []Slot{}
	for _, g := range gesture.All() {
		if g.Discrete() {
			slots = append(slots, Slot{Gesture: g})
		}
	}
	return slots
}

// Tracker is the state of one slot.
type Tracker struct {
	Consecutive uint32 `json:"consecutive"`
	// Confirmed latches after a pulse until the gesture is released, so a
	// sustained hold produces one pulse.
	Confirmed            bool       `json:"confirmed"`
	LastConfirmedAt      time.Time  `json:"last_confirmed_at"`
	PendingCombinedUntil *time.Time `json:"pending_combined_until,omitempty"`
	CombinedCount        uint32     `json:"combined_count"`
}

// Pulse is a confirmed gesture, emitted once per confirmation.
type Pulse struct {
	Gesture gesture.Gesture
	// Combined is set when the pulse upgrades a previous one into a double action.
	Combined bool
	At       time.Time
}

// Machine runs every slot. It is owned by the control loop and is not safe
// for concurrent use.
type Machine struct {
	cfg      Config
	clock    clock.Clock
	slots    []Slot
	trackers []Tracker

	lastAction time.Time
	acted      bool
}

// NewMachine creates a Machine over slots, evaluated in the given order.
func NewMachine(cfg Config, clk clock.Clock, slots []Slot) *Machine {
	if cfg.ConfirmFrames < 1 {
		cfg.ConfirmFrames = 1
	}
	return &Machine{
		cfg:      cfg,
		clock:    clk,
		slots:    slots,
		trackers: make([]Tracker, len(slots)),
	}
}

// Step records the gesture observed this tick and returns a pulse if one
// confirms. At most one pulse is returned per tick.
func (m *Machine) Step(g gesture.Gesture) (Pulse, bool) {
	now := m.clock.Now()
	m.expire(now)

	var (
		pulse Pulse
		fired bool
	)
	for i, s := range m.slots {
		tr := &m.trackers[i]
		if s.Gesture != g {
			tr.Consecutive = 0
			tr.Confirmed = false
			continue
		}

		tr.Consecutive++
		if fired || tr.Confirmed || tr.Consecutive < uint32(m.cfg.ConfirmFrames) || !m.gateOpen(now) {
			continue
		}

		pulse = m.confirm(i, now)
		fired = true
	}
	return pulse, fired
}

func (m *Machine) gateOpen(now time.Time) bool {
	return !m.acted || now.Sub(m.lastAction) > m.cfg.MinActionInterval
}

func (m *Machine) confirm(i int, now time.Time) Pulse {
	s, tr := m.slots[i], &m.trackers[i]
	p := Pulse{Gesture: s.Gesture, At: now}

	if s.Combined {
		if tr.PendingCombinedUntil != nil && tr.CombinedCount >= 1 && now.Sub(tr.LastConfirmedAt) <= m.cfg.DoubleWindow {
			p.Combined = true
			tr.PendingCombinedUntil = nil
			tr.CombinedCount = 0
		} else {
			until := now.Add(m.cfg.DoubleWindow)
			tr.PendingCombinedUntil = &until
			tr.CombinedCount = 1
		}
	}

	// Any other action breaks a pending double.
	for j := range m.trackers {
		if j != i {
			m.trackers[j].PendingCombinedUntil = nil
			m.trackers[j].CombinedCount = 0
		}
	}

	tr.Consecutive = 0
	tr.Confirmed = true
	tr.LastConfirmedAt = now
	m.lastAction = now
	m.acted = true
	return p
}

// expire drops pending doubles older than the window.
func (m *Machine) expire(now time.Time) {
	for i := range m.trackers {
		tr := &m.trackers[i]
		if tr.PendingCombinedUntil != nil && now.Sub(tr.LastConfirmedAt) > m.cfg.DoubleWindow {
			tr.PendingCombinedUntil = nil
			tr.CombinedCount = 0
		}
	}
}

// Reset is called when nothing was detected. Counters and latches return to
// idle; pending doubles are left to expire by time.
func (m *Machine) Reset() {
	m.expire(m.clock.Now())
	for i := range m.trackers {
		m.trackers[i].Consecutive = 0
		m.trackers[i].Confirmed = false
	}
}

// Tracker returns a copy of the tracker for g.
func (m *Machine) Tracker(g gesture.Gesture) (Tracker, bool) {
	for i, s := range m.slots {
		if s.Gesture == g {
			return m.trackers[i], true
		}
	}
	return Tracker{}, false
}
