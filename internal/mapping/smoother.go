package mapping

import (
	"image"
	"math"
)

// Smoother averages the last Size positions. It is not safe for concurrent use.
type Smoother struct {
	size     int
	minFill  int
	weighted bool
	window   []image.Point
}

// NewSmoother creates a Smoother holding at most size positions that starts
// averaging once minFill positions are held. With weighted set, positions are
// weighted linearly from 0.1 (oldest) to 1.0 (newest).
func NewSmoother(size, minFill int, weighted bool) *Smoother {
	if size < 1 {
		size = 1
	}
	if minFill < 1 {
		minFill = 1
	}
	if minFill > size {
		minFill = size
	}
	return &Smoother{size: size, minFill: minFill, weighted: weighted, window: make([]image.Point, 0, size)}
}

// Push adds p, evicting the oldest position when full. It returns the smoothed
// position and true once the window holds minFill positions; before that it
// returns p unchanged and false.
func (s *Smoother) Push(p image.Point) (image.Point, bool) {
	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, p)

	if len(s.window) < s.minFill {
		return p, false
	}
	return s.average(), true
}

// Len returns the number of held positions.
func (s *Smoother) Len() int {
	return len(s.window)
}

// Reset empties the window.
func (s *Smoother) Reset() {
	s.window = s.window[:0]
}

// average computes the mean as an offset from the newest position so that a
// stationary window reproduces its input exactly.
func (s *Smoother) average() image.Point {
	n := len(s.window)
	ref := s.window[n-1]

	var dx, dy, total float64
	for i, p := range s.window {
		w := s.weight(i, n)
		dx += w * float64(p.X-ref.X)
		dy += w * float64(p.Y-ref.Y)
		total += w
	}

	return image.Point{
		X: ref.X + int(math.Round(dx/total)),
		Y: ref.Y + int(math.Round(dy/total)),
	}
}

func (s *Smoother) weight(i, n int) float64 {
	if !s.weighted || n == 1 {
		return 1
	}
	return 0.1 + 0.9*float64(i)/float64(n-1)
}
