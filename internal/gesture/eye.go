package gesture

import (
	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/signal"
)

// Thresholds are the per-eye wink thresholds derived from a baseline.
type Thresholds struct {
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
	LeftMean  float64 `json:"left_mean"`
	RightMean float64 `json:"right_mean"`

	// Set when the signal showed no variation and the fallback is in use.
	LeftFallback  bool `json:"left_fallback"`
	RightFallback bool `json:"right_fallback"`
}

// DeriveThresholds computes mean - k*stddev per eye, falling back to the fixed
// threshold for a degenerate signal.
func DeriveThresholds(b *calibration.Baseline, cfg Config) Thresholds {
	left, _ := b.Stats(signal.EyeLeft)
	right, _ := b.Stats(signal.EyeRight)

	th := Thresholds{LeftMean: left.Mean, RightMean: right.Mean}
	th.Left, th.LeftFallback = threshold(left, cfg)
	th.Right, th.RightFallback = threshold(right, cfg)
	return th
}

func threshold(s calibration.Stats, cfg Config) (float64, bool) {
	if s.Degenerate() {
		return cfg.FallbackEyeThreshold, true
	}
	return s.Mean - cfg.Sensitivity*s.StdDev, false
}

// EyeClassifier recognises winks. A left wink is PrimaryAction and a right
// wink is SecondaryAction; anything else moves the cursor.
type EyeClassifier struct {
	cfg Config
	th  Thresholds
}

// NewEyeClassifier creates an EyeClassifier for a frozen baseline.
func NewEyeClassifier(b *calibration.Baseline, cfg Config) *EyeClassifier {
	return &EyeClassifier{cfg: cfg, th: DeriveThresholds(b, cfg)}
}

// Thresholds returns the thresholds in use.
func (c *EyeClassifier) Thresholds() Thresholds {
	return c.th
}

// Classify implements Classifier.
func (c *EyeClassifier) Classify(f signal.Features) Gesture {
	if f.Mode != detector.ModeEye {
		return None
	}
	switch {
	case c.wink(f.EyeLeft, c.th.Left, c.th.LeftMean, f.EyeRight, c.th.RightMean):
		return PrimaryAction
	case c.wink(f.EyeRight, c.th.Right, c.th.RightMean, f.EyeLeft, c.th.LeftMean):
		return SecondaryAction
	}
	return CursorMove
}

// wink requires the closing eye to drop below both its threshold and a
// fraction of its resting value while the other eye stays open. Blinks close
// both eyes and so never match.
func (c *EyeClassifier) wink(closing, threshold, closingMean, other, otherMean float64) bool {
	return closing < threshold &&
		closing < c.cfg.WinkClosedFraction*closingMean &&
		other > c.cfg.OpenFraction*otherMean
}
