package gesture

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// Template is a user-recorded hand pose bound to a gesture.
type Template struct {
	ID        string             // Unique identifier for the template
	Name      string             // Human-readable name
	Gesture   Gesture            // Gesture produced on a match
	Landmarks []detector.Point3D // Normalized landmarks
	Tolerance float64            // Maximum distance for a match
}

// Match represents a matching result between input and a template.
type Match struct {
	Template *Template // The matched template
	Score    float64   // Match score (0-1, higher is better)
	Distance float64   // Summed point distance between input and template
}

// TemplateMatcher matches hand poses against registered templates. Templates
// may be replaced from other goroutines while the control loop matches.
type TemplateMatcher struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateMatcher creates an empty TemplateMatcher.
func NewTemplateMatcher() *TemplateMatcher {
	return &TemplateMatcher{}
}

// AddTemplate adds a template, replacing any with the same ID.
func (m *TemplateMatcher) AddTemplate(t *Template) {
	if t == nil || !t.Gesture.Valid() || len(t.Landmarks) != detector.NumLandmarks {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(t.ID)
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (m *TemplateMatcher) RemoveTemplate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *TemplateMatcher) removeLocked(id string) {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Replace swaps the whole template set.
func (m *TemplateMatcher) Replace(templates []*Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil && t.Gesture.Valid() && len(t.Landmarks) == detector.NumLandmarks {
			next = append(next, t)
		}
	}
	m.templates = next
}

// Len returns the number of templates.
func (m *TemplateMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// Match finds templates within tolerance of hand, best first. Ties keep
// insertion order.
func (m *TemplateMatcher) Match(hand *detector.HandLandmarks) []Match {
	normalized := hand.Normalize()
	if normalized == nil {
		return nil
	}
	input := normalized.Points[:]

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		distance := pointDistance(input, t.Landmarks)
		if distance <= t.Tolerance {
			matches = append(matches, Match{
				Template: t,
				Score:    1.0 / (1.0 + distance),
				Distance: distance,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Best returns the closest template within tolerance.
func (m *TemplateMatcher) Best(hand *detector.HandLandmarks) (Match, bool) {
	matches := m.Match(hand)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// pointDistance sums the distances between corresponding points.
func pointDistance(a, b []detector.Point3D) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var total float64
	for i := range a {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
