package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/signal"
)

// Rule is one entry of the hand rule table. Rules are tried in order and the
// first match wins.
type Rule struct {
	Name  string
	Match func(f signal.Features, cfg Config) (Gesture, bool)
}

func fingers(f signal.Features, thumb, index, middle, ring, pinky bool) bool {
	return f.Fingers == [5]bool{thumb, index, middle, ring, pinky}
}

func when(g Gesture, ok bool) (Gesture, bool) {
	return g, ok
}

// handRules is the fixed priority order. Clicks come before pointing since a
// pinch also satisfies the pointing precondition.
var handRules = []Rule{
	{"pinch_index", func(f signal.Features, cfg Config) (Gesture, bool) {
		up := f.Fingers
		return when(PrimaryAction, up[detector.Thumb] && up[detector.Index] &&
			f.Distances[signal.ThumbIndex] < cfg.PinchDistance &&
			!up[detector.Middle] && !up[detector.Ring] && !up[detector.Pinky])
	}},
	{"pinch_middle", func(f signal.Features, cfg Config) (Gesture, bool) {
		up := f.Fingers
		return when(SecondaryAction, up[detector.Thumb] && up[detector.Middle] &&
			f.Distances[signal.ThumbMiddle] < cfg.PinchDistance)
	}},
	{"touch_middle", func(f signal.Features, cfg Config) (Gesture, bool) {
		up := f.Fingers
		return when(SecondaryAction, up[detector.Middle] &&
			f.Distances[signal.ThumbMiddle] < cfg.PinchDistance &&
			!up[detector.Index])
	}},
	{"point", func(f signal.Features, cfg Config) (Gesture, bool) {
		up := f.Fingers
		return when(CursorMove, up[detector.Index] &&
			!up[detector.Middle] && !up[detector.Ring] && !up[detector.Pinky] &&
			(!up[detector.Thumb] || f.Distances[signal.ThumbIndex] > cfg.PinchDistance))
	}},
	{"thumb", func(f signal.Features, cfg Config) (Gesture, bool) {
		if !fingers(f, true, false, false, false, false) {
			return None, false
		}
		if cfg.ThumbAction == ThumbBrightness {
			if f.ThumbPointsUp {
				return BrightnessUp, true
			}
			return BrightnessDown, true
		}
		if f.ThumbPointsUp {
			return ScrollUp, true
		}
		return ScrollDown, true
	}},
	{"peace", func(f signal.Features, cfg Config) (Gesture, bool) {
		return when(VolumeUp, fingers(f, false, true, true, false, false) &&
			f.Distances[signal.ThumbMiddle] > cfg.PinchDistance)
	}},
	{"fist", func(f signal.Features, cfg Config) (Gesture, bool) {
		return when(VolumeDown, f.FingersUp() == 0)
	}},
	{"four", func(f signal.Features, cfg Config) (Gesture, bool) {
		return when(MediaPlayPause, fingers(f, false, true, true, true, true))
	}},
	{"palm", func(f signal.Features, cfg Config) (Gesture, bool) {
		return when(MediaNext, fingers(f, true, true, true, true, true))
	}},
	{"pinky", func(f signal.Features, cfg Config) (Gesture, bool) {
		return when(MediaPrev, fingers(f, false, false, false, false, true))
	}},
}

// HandRules returns a copy of the rule table in priority order.
func HandRules() []Rule {
	out := make([]Rule, len(handRules))
	copy(out, handRules)
	return out
}

// HandClassifier applies user pose templates and then the rule table.
type HandClassifier struct {
	cfg       Config
	templates *TemplateMatcher
}

// NewHandClassifier creates a HandClassifier. templates may be nil.
func NewHandClassifier(cfg Config, templates *TemplateMatcher) *HandClassifier {
	return &HandClassifier{cfg: cfg, templates: templates}
}

// Classify implements Classifier.
func (c *HandClassifier) Classify(f signal.Features) Gesture {
	g, _ := c.Explain(f)
	return g
}

// Explain classifies f and names the template or rule that decided it.
func (c *HandClassifier) Explain(f signal.Features) (Gesture, string) {
	if f.Mode != detector.ModeHand {
		return None, ""
	}
	if c.templates != nil && f.Hand != nil {
		if m, ok := c.templates.Best(f.Hand); ok {
			return m.Template.Gesture, "pose:" + m.Template.Name
		}
	}
	for _, r := range handRules {
		if g, ok := r.Match(f, c.cfg); ok {
			return g, r.Name
		}
	}
	return None, ""
}
