package action

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// PluginSink forwards key presses to the key plugin whose manifest lists the
// key name. Every other primitive is unsupported.
type PluginSink struct {
	manager  *plugin.Manager
	executor *plugin.Executor
}

// NewPluginSink creates a PluginSink over discovered plugins.
func NewPluginSink(m *plugin.Manager, e *plugin.Executor) *PluginSink {
	return &PluginSink{manager: m, executor: e}
}

// PressKey runs the plugin bound to name. It returns ErrUnsupported when no
// plugin handles name and ErrPluginFailed when the plugin cannot run or
// reports failure.
func (s *PluginSink) PressKey(name string) error {
	p, err := s.manager.ForAction(name)
	if errors.Is(err, plugin.ErrPluginNotFound) {
		return ErrUnsupported
	}
	if err != nil {
		return err
	}

	resp, err := s.executor.Execute(context.Background(), p, &plugin.Request{
		Action:  name,
		Gesture: keyGesture(name).String(),
	})
	if err != nil {
		return fmt.Errorf("%w: run %s: %v", ErrPluginFailed, p.Manifest.Name, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrPluginFailed, p.Manifest.Name, resp.Error)
	}
	return nil
}

func keyGesture(name string) gesture.Gesture {
	for g, k := range gestureKeys {
		if k == name {
			return g
		}
	}
	return gesture.None
}

func (s *PluginSink) MoveTo(x, y int) error { return ErrUnsupported }
func (s *PluginSink) Click(Button) error { return ErrUnsupported }
func (s *PluginSink) DoubleClick(Button) error { return ErrUnsupported }
func (s *PluginSink) Scroll(int) error { return ErrUnsupported }
func (s *PluginSink) MouseDown(Button) error { return ErrUnsupported }
func (s *PluginSink) MouseUp(Button) error { return ErrUnsupported }

// Chain tries each sink in order until one does not return ErrUnsupported.
// A plugin failure also moves on; it is returned only when no later sink
// handles the event.
type Chain []Sink

func (c Chain) try(fn func(Sink) error) error {
	var failed error
	for _, s := range c {
		err := fn(s)
		switch {
		case errors.Is(err, ErrUnsupported):
		case errors.Is(err, ErrPluginFailed):
			log.Printf("action: %v, trying next sink", err)
			failed = err
		default:
			return err
		}
	}
	if failed != nil {
		return failed
	}
	return ErrUnsupported
}

func (c Chain) MoveTo(x, y int) error {
	return c.try(func(s Sink) error { return s.MoveTo(x, y) })
}

func (c Chain) Click(b Button) error {
	return c.try(func(s Sink) error { return s.Click(b) })
}

func (c Chain) DoubleClick(b Button) error {
	return c.try(func(s Sink) error { return s.DoubleClick(b) })
}

func (c Chain) Scroll(delta int) error {
	return c.try(func(s Sink) error { return s.Scroll(delta) })
}

func (c Chain) MouseDown(b Button) error {
	return c.try(func(s Sink) error { return s.MouseDown(b) })
}

func (c Chain) MouseUp(b Button) error {
	return c.try(func(s Sink) error { return s.MouseUp(b) })
}

func (c Chain) PressKey(name string) error {
	return c.try(func(s Sink) error { return s.PressKey(name) })
}

// RecordingSink records every primitive it receives. Err, when set, is
// returned from every call after recording.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (r *RecordingSink) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// SetErr changes the error returned by subsequent calls.
func (r *RecordingSink) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Events returns a copy of the recorded events.
func (r *RecordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, ignoring moves.
func (r *RecordingSink) Kinds() []Kind {
	var out []Kind
	for _, e := range r.Events() {
		if e.Kind != KindMove {
			out = append(out, e.Kind)
		}
	}
	return out
}

func (r *RecordingSink) MoveTo(x, y int) error {
	e := Event{Kind: KindMove}
	e.Point.X, e.Point.Y = x, y
	return r.record(e)
}

func (r *RecordingSink) Click(b Button) error {
	return r.record(Event{Kind: KindClick, Button: b})
}

func (r *RecordingSink) DoubleClick(b Button) error {
	return r.record(Event{Kind: KindDoubleClick, Button: b})
}

func (r *RecordingSink) Scroll(delta int) error {
	return r.record(Event{Kind: KindScroll, Delta: delta})
}

func (r *RecordingSink) MouseDown(b Button) error {
	return r.record(Event{Kind: KindMouseDown, Button: b})
}

func (r *RecordingSink) MouseUp(b Button) error {
	return r.record(Event{Kind: KindMouseUp, Button: b})
}

func (r *RecordingSink) PressKey(name string) error {
	return r.record(Event{Kind: KindKey, Key: name})
}
