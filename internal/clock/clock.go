// Package clock provides the monotonic time source used by every time window
// in the control loop, so that tests can drive windows without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock is a source of monotonic time.
type Clock interface {
	// Now returns the current time. Real clocks carry a monotonic reading.
	Now() time.Time

	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
}

// Real implements Clock using the time package.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// Since returns time.Since.
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Manual is a clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock set to t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Since returns the time elapsed on the manual clock since t.
func (m *Manual) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t. Moving backward is allowed for tests but the
// control loop assumes time never decreases.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
