// Package emotion tracks a decaying, momentum-weighted mood for the twin.
package emotion

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Allreality/my-twin/internal/model"
)

// Emotion is the twin's current mood label.
type Emotion string

const (
	Neutral       Emotion = "neutral"
	Happy         Emotion = "happy"
	Sad           Emotion = "sad"
	Excited       Emotion = "excited"
	Anxious       Emotion = "anxious"
	Content       Emotion = "content"
	Contemplative Emotion = "contemplative"
)

const (
	// DefaultIntensity and DefaultMomentum are the values of a fresh state.
	DefaultIntensity = 0.5
	DefaultMomentum  = 0.5

	decayPerHour = 0.1
	maxDecay     = 0.5

	strongBand = 0.6
	mildBand   = 0.4
)

// State is a single twin's emotional state. It is safe for concurrent use.
type State struct {
	mu         sync.Mutex
	emotion    Emotion
	intensity  float64
	momentum   float64
	trigger    string
	lastUpdate time.Time
	now        func() time.Time
}

// New returns a neutral state with default intensity and momentum.
func New() *State {
	return NewWithClock(time.Now)
}

// NewWithClock returns a neutral state that reads time from now.
func NewWithClock(now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		emotion:    Neutral,
		intensity:  DefaultIntensity,
		momentum:   DefaultMomentum,
		lastUpdate: now(),
		now:        now,
	}
}

// FromSnapshot restores a persisted state.
func FromSnapshot(s model.EmotionSnapshot, now func() time.Time) *State {
	st := NewWithClock(now)
	if s.Emotion != "" {
		st.emotion = Emotion(s.Emotion)
	}
	st.intensity = model.Clamp(s.Intensity, 0, 1)
	st.momentum = model.Clamp(s.Momentum, 0, 1)
	st.trigger = s.Trigger
	if !s.LastUpdate.IsZero() {
		st.lastUpdate = s.LastUpdate
	}
	return st
}

// Update applies one event to the state.
//
// eventSentiment is expected in [-1, 1]. It is not validated: out-of-range
// values flow straight into the blend and the classification below, and
// only the stored intensity is clamped.
func (s *State) Update(eventSentiment float64, trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hours := now.Sub(s.lastUpdate).Hours()
	if hours < 0 {
		hours = 0
	}
	decay := math.Min(hours*decayPerHour, maxDecay)

	current := s.intensity - decay
	next := current*s.momentum + eventSentiment*(1-s.momentum)

	s.emotion = classify(next, eventSentiment)
	s.intensity = model.Clamp(next, 0, 1)
	s.lastUpdate = now
	s.trigger = trigger
}

// classify maps a blended intensity to a mood. Thresholds are strict.
func classify(intensity, sentiment float64) Emotion {
	switch {
	case intensity > strongBand:
		if sentiment > 0 {
			return Happy
		}
		return Sad
	case intensity > mildBand:
		if sentiment > 0 {
			return Content
		}
		return Anxious
	default:
		return Neutral
	}
}

// Emotion returns the current mood.
func (s *State) Emotion() Emotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emotion
}

// Intensity returns the current intensity in [0, 1].
func (s *State) Intensity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

// Momentum returns the smoothing constant.
func (s *State) Momentum() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.momentum
}

// Trigger returns the text of the last event.
func (s *State) Trigger() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger
}

// LastUpdate returns when the state last changed.
func (s *State) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// Context renders the state as a prompt section.
func (s *State) Context() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := s.now().Sub(s.lastUpdate).Hours()
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf(`Current emotional state:
Emotion: %s
Intensity: %.1f/1.0
Trigger: %s
Duration: %.1f hours

Respond in a way that reflects this emotional state.`, s.emotion, s.intensity, s.trigger, hours)
}

// Snapshot returns the persistable form of the state.
func (s *State) Snapshot(sessionID string) model.EmotionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.EmotionSnapshot{
		SessionID:  sessionID,
		Emotion:    string(s.emotion),
		Intensity:  s.intensity,
		Momentum:   s.momentum,
		Trigger:    s.trigger,
		LastUpdate: s.lastUpdate,
	}
}
