package control

import "github.com/ayusman/mudra/internal/detector"

// FrameSlot hands frames from the capture goroutine to the control loop. It
// holds at most one frame; a new frame replaces an unread one, so the loop
// always sees the freshest detection and never a backlog.
type FrameSlot struct {
	ch chan *detector.Frame
}

// NewFrameSlot creates an empty FrameSlot.
func NewFrameSlot() *FrameSlot {
	return &FrameSlot{ch: make(chan *detector.Frame, 1)}
}

// Put stores f, discarding any frame not yet taken. It never blocks.
// Put must be called from a single producer.
func (s *FrameSlot) Put(f *detector.Frame) {
	for {
		select {
		case s.ch <- f:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Take returns the pending frame, if any, without blocking.
func (s *FrameSlot) Take() (*detector.Frame, bool) {
	select {
	case f := <-s.ch:
		return f, true
	default:
		return nil, false
	}
}

// C returns the channel a consumer can select on.
func (s *FrameSlot) C() <-chan *detector.Frame {
	return s.ch
}
