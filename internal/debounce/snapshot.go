package debounce

import (
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// State is the display state of a slot.
type State string

const (
	Idle         State = "idle"
	Accumulating State = "accumulating"
	// Held means the slot fired and the gesture has not been released yet.
	Held State = "held"
)

// SlotState is a read-only view of one slot for the UI.
type SlotState struct {
	Gesture         gesture.Gesture `json:"gesture"`
	State           State           `json:"state"`
	Consecutive     uint32          `json:"consecutive"`
	Target          int             `json:"target"`
	DoubleRemaining time.Duration   `json:"double_remaining,omitempty"`
}

// Snapshot describes every slot in priority order.
func (m *Machine) Snapshot() []SlotState {
	now := m.clock.Now()
	out := make([]SlotState, len(m.slots))
	for i, s := range m.slots {
		tr := m.trackers[i]
		st := SlotState{
			Gesture:     s.Gesture,
			State:       Idle,
			Consecutive: tr.Consecutive,
			Target:      m.cfg.ConfirmFrames,
		}
		switch {
		case tr.Confirmed:
			st.State = Held
		case tr.Consecutive > 0:
			st.State = Accumulating
		}
		if tr.PendingCombinedUntil != nil {
			if d := tr.PendingCombinedUntil.Sub(now); d > 0 {
				st.DoubleRemaining = d
			}
		}
		out[i] = st
	}
	return out
}
