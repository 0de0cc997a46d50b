package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// settingFields maps each runtime-adjustable setting key to its field.
// Process-level values (listen address, directories) are not settings.
var settingFields = map[string]func(*Config) any{
	"mode":                   func(c *Config) any { return &c.Mode },
	"warmup_frames":          func(c *Config) any { return &c.WarmupFrames },
	"confirm_frames":         func(c *Config) any { return &c.ConfirmFrames },
	"min_action_interval":    func(c *Config) any { return &c.MinActionInterval },
	"double_window":          func(c *Config) any { return &c.DoubleWindow },
	"edge_expansion":         func(c *Config) any { return &c.EdgeExpansion },
	"smoothing_window_size":  func(c *Config) any { return &c.SmoothingWindowSize },
	"smoothing_min_fill":     func(c *Config) any { return &c.SmoothingMinFill },
	"smoothing_weighted":     func(c *Config) any { return &c.SmoothingWeighted },
	"sensitivity":            func(c *Config) any { return &c.Sensitivity },
	"pinch_distance":         func(c *Config) any { return &c.PinchDistance },
	"thumb_action":           func(c *Config) any { return &c.ThumbAction },
	"wink_closed_fraction":   func(c *Config) any { return &c.WinkClosedFraction },
	"open_fraction":          func(c *Config) any { return &c.OpenFraction },
	"fallback_eye_threshold": func(c *Config) any { return &c.FallbackEyeThreshold },
	"scroll_amount":          func(c *Config) any { return &c.ScrollAmount },
	"camera_id":              func(c *Config) any { return &c.CameraID },
}

// SettingKeys returns the recognised setting keys in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings renders every setting of c as a string.
func (c Config) Settings() map[string]string {
	out := make(map[string]string, len(settingFields))
	for key, field := range settingFields {
		switch v := field(&c).(type) {
		case *int:
			out[key] = strconv.Itoa(*v)
		case *float64:
			out[key] = strconv.FormatFloat(*v, 'g', -1, 64)
		case *bool:
			out[key] = strconv.FormatBool(*v)
		case *time.Duration:
			out[key] = v.String()
		case *detector.Mode:
			out[key] = string(*v)
		case *gesture.ThumbAction:
			out[key] = string(*v)
		}
	}
	return out
}

// ApplySettings overlays string settings onto c and validates the result.
// Unknown keys are rejected. c is left untouched on error.
func (c *Config) ApplySettings(settings map[string]string) error {
	next := *c
	for key, raw := range settings {
		field, ok := settingFields[key]
		if !ok {
			return fmt.Errorf("%w: unknown setting %q", ErrInvalid, key)
		}
		if err := parseInto(field(&next), raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func parseInto(dst any, raw string) error {
	switch v := dst.(type) {
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*v = n
	case *float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*v = f
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*v = b
	case *time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*v = d
	case *detector.Mode:
		*v = detector.Mode(raw)
	case *gesture.ThumbAction:
		*v = gesture.ThumbAction(raw)
	default:
		return fmt.Errorf("unsupported field type %T", dst)
	}
	return nil
}
