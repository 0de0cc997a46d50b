package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/signal"
)

func eyeFeatures(x, y, left, right float64) signal.Features {
	return signal.Features{Mode: detector.ModeEye, PointerX: x, PointerY: y, EyeLeft: left, EyeRight: right}
}

func TestCalibratorFreezesOnTarget(t *testing.T) {
	const n = 120
	c := New(detector.ModeEye, n)

	// Deterministic non-trivial sequence.
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 0.04 + 0.004*math.Sin(float64(i)*0.7)
	}

	var baseline *Baseline
	for i, v := range seq {
		b, done := c.Observe(eyeFeatures(0.5, 0.5, v, 0.05))
		if i < n-1 {
			require.False(t, done, "frozen early at frame %d", i)
			continue
		}
		require.True(t, done)
		baseline = b
	}

	wantMin, wantMax := seq[0], seq[0]
	var sum float64
	for _, v := range seq {
		wantMin = math.Min(wantMin, v)
		wantMax = math.Max(wantMax, v)
		sum += v
	}
	wantMean := sum / n
	var sq float64
	for _, v := range seq {
		sq += (v - wantMean) * (v - wantMean)
	}
	wantStd := math.Sqrt(sq / n)

	s, ok := baseline.Stats(signal.EyeLeft)
	require.True(t, ok)
	assert.Equal(t, wantMin, s.Min)
	assert.Equal(t, wantMax, s.Max)
	assert.InDelta(t, wantMean, s.Mean, 1e-12)
	assert.InDelta(t, wantStd, s.StdDev, 1e-12)
	assert.Equal(t, n, s.N)
	assert.LessOrEqual(t, s.Min, s.Mean)
	assert.LessOrEqual(t, s.Mean, s.Max)
}

func TestCalibratorIgnoresAfterFreeze(t *testing.T) {
	c := New(detector.ModeEye, 2)
	c.Observe(eyeFeatures(0.1, 0.1, 0.03, 0.03))
	b, done := c.Observe(eyeFeatures(0.3, 0.3, 0.05, 0.05))
	require.True(t, done)

	_, again := c.Observe(eyeFeatures(0.9, 0.9, 0.9, 0.9))
	assert.False(t, again)

	s, _ := c.Baseline().Stats(signal.PointerX)
	assert.Equal(t, 0.3, s.Max)
	assert.Same(t, b, c.Baseline())

	frames, target := c.Progress()
	assert.Equal(t, 2, frames)
	assert.Equal(t, 2, target)
}

func TestCalibratorDegenerate(t *testing.T) {
	c := New(detector.ModeEye, 10)
	var b *Baseline
	for i := 0; i < 10; i++ {
		b, _ = c.Observe(eyeFeatures(0.5, 0.5, 0.04, 0.04))
	}
	require.NotNil(t, b)

	s, _ := b.Stats(signal.EyeLeft)
	assert.True(t, s.Degenerate())
	assert.Equal(t, 0.04, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestCalibratorHandMode(t *testing.T) {
	c := New(detector.ModeHand, 3)

	for _, x := range []float64{0.2, 0.4, 0.6} {
		c.Observe(signal.Features{Mode: detector.ModeHand, PointerX: x, PointerY: 1 - x})
	}
	require.True(t, c.Done())

	_, ok := c.Baseline().Stats(signal.EyeLeft)
	assert.False(t, ok)

	s, ok := c.Baseline().Stats(signal.PointerY)
	require.True(t, ok)
	assert.InDelta(t, 0.4, s.Min, 1e-12)
	assert.InDelta(t, 0.8, s.Max, 1e-12)
}

func TestCalibratorRejectsWrongMode(t *testing.T) {
	c := New(detector.ModeEye, 1)
	_, done := c.Observe(signal.Features{Mode: detector.ModeHand})
	assert.False(t, done)
	frames, _ := c.Progress()
	assert.Equal(t, 0, frames)
}

func TestCalibratorInterimAndReset(t *testing.T) {
	c := New(detector.ModeEye, 5)
	c.Observe(eyeFeatures(0.2, 0.5, 0.04, 0.04))
	c.Observe(eyeFeatures(0.4, 0.5, 0.04, 0.04))

	s, ok := c.Interim(signal.PointerX)
	require.True(t, ok)
	assert.InDelta(t, 0.3, s.Mean, 1e-12)
	assert.InDelta(t, 0.1, s.StdDev, 1e-9)

	c.Reset()
	frames, _ := c.Progress()
	assert.Equal(t, 0, frames)
	assert.False(t, c.Done())
}

func TestCalibratorLargeTarget(t *testing.T) {
	c := New(detector.ModeEye, math.MaxInt)
	require.NotPanics(t, c.Reset)

	_, done := c.Observe(eyeFeatures(0.2, 0.5, 0.04, 0.04))
	assert.False(t, done)
	frames, target := c.Progress()
	assert.Equal(t, 1, frames)
	assert.Equal(t, math.MaxInt, target)
}
