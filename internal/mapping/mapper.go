// Package mapping turns calibrated raw pointer positions into screen pixels and
// smooths them over a short history.
package mapping

import (
	"image"
	"math"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/signal"
)

// midpoint is used for an axis whose calibrated range is empty.
const midpoint = 0.5

// Mapper maps raw normalized positions onto a screen of Width x Height pixels.
type Mapper struct {
	// EdgeExpansion is trimmed from each end of the calibrated range, as a
	// fraction of its width, so the screen edge is reached early. Must be < 0.5.
	EdgeExpansion float64
	Width         int
	Height        int
}

// NewMapper creates a Mapper.
func NewMapper(edgeExpansion float64, width, height int) *Mapper {
	return &Mapper{EdgeExpansion: edgeExpansion, Width: width, Height: height}
}

// Normalize maps raw into the inset calibrated range without clamping.
// A value at the calibrated minimum lands below 0 and one at the maximum
// lands above 1. A degenerate range yields the midpoint.
func (m *Mapper) Normalize(raw float64, s calibration.Stats) float64 {
	width := s.Max - s.Min
	if s.N == 0 || !(width > 0) {
		return midpoint
	}
	lo := s.Min + m.EdgeExpansion*width
	hi := s.Max - m.EdgeExpansion*width
	if !(hi > lo) {
		return midpoint
	}
	v := (raw - lo) / (hi - lo)
	if math.IsNaN(v) {
		return midpoint
	}
	return v
}

// Map converts a raw pointer position into a pixel inside the screen.
func (m *Mapper) Map(rawX, rawY float64, b *calibration.Baseline) image.Point {
	sx, _ := b.Stats(signal.PointerX)
	sy, _ := b.Stats(signal.PointerY)

	return image.Point{
		X: scale(clamp01(m.Normalize(rawX, sx)), m.Width),
		Y: scale(clamp01(m.Normalize(rawY, sy)), m.Height),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func scale(v float64, size int) int {
	if size <= 0 {
		return 0
	}
	p := int(v * float64(size))
	if p > size-1 {
		p = size - 1
	}
	if p < 0 {
		p = 0
	}
	return p
}
