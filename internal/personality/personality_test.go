package personality

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, "Akil", p.Name)
	assert.Equal(t, 0.85, p.Traits.Openness)
	assert.NotEmpty(t, p.SpeechPatterns)
	assert.NoError(t, p.Validate())
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Name, p.Name)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.yaml")
	data := `
name: Sam
traits:
  openness: 0.8
  conscientiousness: 0.7
  extraversion: 0.6
  agreeableness: 0.75
  neuroticism: 0.3
communication_style: warm and thoughtful
speech_patterns:
  - hmm, let me think about that
values: [curiosity, authenticity, growth]
locations:
  studio:
    mode: artist
    greeting: Welcome to the studio.
    adjustments:
      openness: 0.99
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, "warm and thoughtful", p.CommunicationStyle)
	assert.True(t, p.HasLocation("studio"))
	assert.Equal(t, "Welcome to the studio.", p.Greeting("studio"))
	assert.Contains(t, p.LocationNames(), "studio")
	assert.Contains(t, p.LocationNames(), "midnight_kb")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("traits:\n  openness: 1.5\n"))
	assert.ErrorContains(t, err, "openness")

	_, err = Parse([]byte("locations:\n  x:\n    adjustments:\n      neuroticism: -0.1\n"))
	assert.Error(t, err)
}

func TestPrompt_Neutral(t *testing.T) {
	p := Default()
	got := p.Prompt("")

	assert.True(t, strings.HasPrefix(got, "You are Akil's digital twin"))
	assert.Contains(t, got, "- Openness: 0.85")
	assert.Contains(t, got, "- Neuroticism: 0.25 (calm under pressure)")
	assert.Contains(t, got, "SPEECH PATTERNS:\n- from a systems architecture perspective...")
	assert.Contains(t, got, "General conversation mode with balanced personality.")
	assert.True(t, strings.HasSuffix(got, "Maintain these characteristics in EVERY response."))
}

func TestPrompt_SkipsEmptySections(t *testing.T) {
	p := &Profile{Traits: Traits{Openness: 0.5}}
	got := p.Prompt(Neutral)
	assert.NotContains(t, got, "INTERESTS")
	assert.NotContains(t, got, "CORE IDENTITY")
	assert.Contains(t, got, "You are a digital twin")
}

func TestPrompt_LocationOverlay(t *testing.T) {
	p := Default()
	got := p.Prompt("blockchain_lab")

	assert.Contains(t, got, "CURRENT CONTEXT: Security-focused technical environment")
	assert.Contains(t, got, "You are now in security_analyst mode.")
	assert.Contains(t, got, "- threat_modeling")
	// Overlay adjustments replace base traits, others are untouched.
	assert.Contains(t, got, "- Conscientiousness: 0.95")
	assert.Contains(t, got, "- Neuroticism: 0.15")
	assert.Contains(t, got, "- Extraversion: 0.65")
	assert.NotContains(t, got, "balanced personality")
}

func TestLocation_UnknownFallsBackToNeutral(t *testing.T) {
	p := Default()
	assert.Equal(t, Neutral, p.Location("moon_base").Name)
	assert.False(t, p.HasLocation("moon_base"))
	assert.Equal(t, "Hello! How can I assist you today?", p.Greeting("moon_base"))
}

func TestTraits_Adjusted(t *testing.T) {
	base := Traits{Openness: 0.5, Neuroticism: 0.5}
	adj := base.Adjusted(map[string]float64{"openness": 0.9, "charisma": 1})
	assert.Equal(t, 0.9, adj.Openness)
	assert.Equal(t, 0.5, adj.Neuroticism)
	assert.Equal(t, 0.5, base.Openness)
}
