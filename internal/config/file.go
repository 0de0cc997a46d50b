package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// maxFileSize caps config files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// File is the on-disk JSON form of Config. Every field is optional so that a
// partial file only overrides what it names. Durations are strings like "600ms".
type File struct {
	Mode                 *string  `json:"mode,omitempty"`
	WarmupFrames         *int     `json:"warmup_frames,omitempty"`
	ConfirmFrames        *int     `json:"confirm_frames,omitempty"`
	MinActionInterval    *string  `json:"min_action_interval,omitempty"`
	DoubleWindow         *string  `json:"double_window,omitempty"`
	EdgeExpansion        *float64 `json:"edge_expansion,omitempty"`
	SmoothingWindowSize  *int     `json:"smoothing_window_size,omitempty"`
	SmoothingMinFill     *int     `json:"smoothing_min_fill,omitempty"`
	SmoothingWeighted    *bool    `json:"smoothing_weighted,omitempty"`
	Sensitivity          *float64 `json:"sensitivity,omitempty"`
	PinchDistance        *float64 `json:"pinch_distance,omitempty"`
	ThumbAction          *string  `json:"thumb_action,omitempty"`
	WinkClosedFraction   *float64 `json:"wink_closed_fraction,omitempty"`
	OpenFraction         *float64 `json:"open_fraction,omitempty"`
	FallbackEyeThreshold *float64 `json:"fallback_eye_threshold,omitempty"`
	ScrollAmount         *int     `json:"scroll_amount,omitempty"`
	DispatchQueueSize    *int     `json:"dispatch_queue_size,omitempty"`
	ScreenWidth          *int     `json:"screen_width,omitempty"`
	ScreenHeight         *int     `json:"screen_height,omitempty"`
	CameraID             *int     `json:"camera_id,omitempty"`
	ListenAddr           *string  `json:"listen_addr,omitempty"`
	PluginDir            *string  `json:"plugin_dir,omitempty"`
	DataDir              *string  `json:"data_dir,omitempty"`
}

// LoadFile reads a JSON config file. The file must have a .json extension and
// be under 1MB.
func LoadFile(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	return f, nil
}

// Apply overlays the fields set in f onto c and validates the result.
// c is left untouched on error.
func (f *File) Apply(c *Config) error {
	next := *c

	if f.Mode != nil {
		next.Mode = detector.Mode(*f.Mode)
	}
	setInt(&next.WarmupFrames, f.WarmupFrames)
	setInt(&next.ConfirmFrames, f.ConfirmFrames)
	if err := setDuration(&next.MinActionInterval, f.MinActionInterval, "min_action_interval"); err != nil {
		return err
	}
	if err := setDuration(&next.DoubleWindow, f.DoubleWindow, "double_window"); err != nil {
		return err
	}
	setFloat(&next.EdgeExpansion, f.EdgeExpansion)
	setInt(&next.SmoothingWindowSize, f.SmoothingWindowSize)
	setInt(&next.SmoothingMinFill, f.SmoothingMinFill)
	if f.SmoothingWeighted != nil {
		next.SmoothingWeighted = *f.SmoothingWeighted
	}
	setFloat(&next.Sensitivity, f.Sensitivity)
	setFloat(&next.PinchDistance, f.PinchDistance)
	if f.ThumbAction != nil {
		next.ThumbAction = gesture.ThumbAction(*f.ThumbAction)
	}
	setFloat(&next.WinkClosedFraction, f.WinkClosedFraction)
	setFloat(&next.OpenFraction, f.OpenFraction)
	setFloat(&next.FallbackEyeThreshold, f.FallbackEyeThreshold)
	setInt(&next.ScrollAmount, f.ScrollAmount)
	setInt(&next.DispatchQueueSize, f.DispatchQueueSize)
	setInt(&next.ScreenWidth, f.ScreenWidth)
	setInt(&next.ScreenHeight, f.ScreenHeight)
	setInt(&next.CameraID, f.CameraID)
	setString(&next.ListenAddr, f.ListenAddr)
	setString(&next.PluginDir, f.PluginDir)
	setString(&next.DataDir, f.DataDir)

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalid, name, *v, err)
	}
	*dst = d
	return nil
}
