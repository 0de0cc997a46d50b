// Package calibration learns a per-user baseline from a fixed warm-up stream
// of feature vectors.
package calibration

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/signal"
)

// Stats summarises one signal over the warm-up window. Mean and StdDev are
// population statistics.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	N      int     `json:"n"`
}

// Degenerate reports whether the signal showed no detectable variation.
func (s Stats) Degenerate() bool {
	return s.N == 0 || s.Max == s.Min || s.StdDev == 0
}

// Baseline is the frozen result of calibration. It is never mutated after
// Freeze returns it.
type Baseline struct {
	Mode    detector.Mode          `json:"mode"`
	Signals map[signal.Name]Stats `json:"signals"`
}

// Stats returns the statistics for name.
func (b *Baseline) Stats(name signal.Name) (Stats, bool) {
	if b == nil {
		return Stats{}, false
	}
	s, ok := b.Signals[name]
	return s, ok
}

// running tracks the streaming aggregates of one signal.
type running struct {
	min, max   float64
	sum, sumSq float64
	samples    []float64
}

func (r *running) add(v float64) {
	if len(r.samples) == 0 || v < r.min {
		r.min = v
	}
	if len(r.samples) == 0 || v > r.max {
		r.max = v
	}
	r.sum += v
	r.sumSq += v * v
	r.samples = append(r.samples, v)
}

// interim returns the current aggregates from the running sums.
func (r *running) interim() Stats {
	n := len(r.samples)
	if n == 0 {
		return Stats{}
	}
	mean := r.sum / float64(n)
	variance := r.sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{Min: r.min, Max: r.max, Mean: clamp(mean, r.min, r.max), StdDev: math.Sqrt(variance), N: n}
}

// freeze computes the final statistics over the retained samples.
func (r *running) freeze() Stats {
	n := len(r.samples)
	if n == 0 {
		return Stats{}
	}
	s := Stats{Min: floats.Min(r.samples), Max: floats.Max(r.samples), N: n}
	if s.Min == s.Max {
		s.Mean = s.Min
		return s
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(r.samples, nil)
	s.Mean = clamp(s.Mean, s.Min, s.Max)
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Calibrator accumulates exactly Target frames and then freezes a Baseline.
// It is owned by the control loop and is not safe for concurrent use.
type Calibrator struct {
	mode     detector.Mode
	target   int
	names    []signal.Name
	signals  map[signal.Name]*running
	frames   int
	baseline *Baseline
}

// New creates a Calibrator for mode that freezes after target frames.
func New(mode detector.Mode, target int) *Calibrator {
	if target < 1 {
		target = 1
	}
	c := &Calibrator{mode: mode, target: target, names: signal.Calibrated(mode)}
	c.Reset()
	return c
}

// Reset discards all observations and any frozen baseline.
func (c *Calibrator) Reset() {
	c.signals = make(map[signal.Name]*running, len(c.names))
	for _, n := range c.names {
		c.signals[n] = &running{}
	}
	c.frames = 0
	c.baseline = nil
}

// Observe adds one feature vector. It returns the baseline and true on the
// frame that completes the warm-up; afterwards further observations are ignored.
func (c *Calibrator) Observe(f signal.Features) (*Baseline, bool) {
	if c.baseline != nil {
		return nil, false
	}
	values := make([]float64, len(c.names))
	for i, n := range c.names {
		v, ok := f.Signal(n)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	for i, n := range c.names {
		c.signals[n].add(values[i])
	}
	c.frames++
	if c.frames < c.target {
		return nil, false
	}

	b := &Baseline{Mode: c.mode, Signals: make(map[signal.Name]Stats, len(c.names))}
	for _, n := range c.names {
		b.Signals[n] = c.signals[n].freeze()
		c.signals[n].samples = nil
	}
	c.baseline = b
	return b, true
}

// Progress reports how many frames have been observed out of the target.
func (c *Calibrator) Progress() (frames, target int) {
	return c.frames, c.target
}

// Done reports whether the baseline is frozen.
func (c *Calibrator) Done() bool {
	return c.baseline != nil
}

// Baseline returns the frozen baseline, or nil while calibrating.
func (c *Calibrator) Baseline() *Baseline {
	return c.baseline
}

// Interim returns live statistics for name from the running sums. It is meant
// for display during warm-up.
func (c *Calibrator) Interim(name signal.Name) (Stats, bool) {
	r, ok := c.signals[name]
	if !ok {
		return Stats{}, false
	}
	if c.baseline != nil {
		return c.baseline.Stats(name)
	}
	return r.interim(), true
}
