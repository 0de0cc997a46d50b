package gesture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoSamples is returned when training is attempted without samples.
var ErrNoSamples = errors.New("no samples provided")

// Trainer processes recorded samples into pose templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Sample is one recorded hand pose as stored by the API.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// TrainStatic normalizes each recorded sample and averages them into the
// landmarks of a single template.
func (t *Trainer) TrainStatic(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	averaged := make([]detector.Point3D, detector.NumLandmarks)
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(sample.Landmarks), detector.NumLandmarks)
		}

		var hand detector.HandLandmarks
		copy(hand.Points[:], sample.Landmarks)
		normalized := hand.Normalize()
		for j, p := range normalized.Points {
			averaged[j].X += p.X
			averaged[j].Y += p.Y
			averaged[j].Z += p.Z
		}
	}

	n := float64(len(samples))
	for j := range averaged {
		averaged[j].X /= n
		averaged[j].Y /= n
		averaged[j].Z /= n
	}
	return averaged, nil
}
