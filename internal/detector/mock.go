package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a scripted sequence of frames, repeating the last one once the
// script runs out.
type MockDetector struct {
	mu     sync.Mutex
	frames []*Frame
	next   int
	err    error
}

// NewMockDetector creates a new MockDetector that detects nothing.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame makes every subsequent Detect call return f.
func (m *MockDetector) SetFrame(f *Frame) {
	m.Script(f)
}

// SetHands is a convenience wrapper that scripts a single frame holding hand.
func (m *MockDetector) SetHands(hand HandLandmarks) {
	m.SetFrame(&Frame{Hand: &hand})
}

// Script replaces the scripted frames and rewinds playback.
func (m *MockDetector) Script(frames ...*Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted frame or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return &Frame{}, nil
	}

	f := m.frames[m.next]
	if m.next < len(m.frames)-1 {
		m.next++
	}
	if f == nil {
		return &Frame{}, nil
	}
	return f, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
