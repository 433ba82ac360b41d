// Package personality loads the twin's static personality profile and
// renders it, with an optional location overlay, as the system framing of
// every prompt.
package personality

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfile []byte

// Traits are the five canonical trait scores, each in [0, 1].
type Traits struct {
	Openness          float64 `yaml:"openness"`
	Conscientiousness float64 `yaml:"conscientiousness"`
	Extraversion      float64 `yaml:"extraversion"`
	Agreeableness     float64 `yaml:"agreeableness"`
	Neuroticism       float64 `yaml:"neuroticism"`
}

// Profile is read-only once loaded.
type Profile struct {
	Name               string   `yaml:"name"`
	Identity           []string `yaml:"identity"`
	Traits             Traits   `yaml:"traits"`
	CommunicationStyle string   `yaml:"communication_style"`
	SpeechPatterns     []string `yaml:"speech_patterns"`
	Values             []string `yaml:"values"`
	Interests          []string `yaml:"interests"`
	Expertise          []string `yaml:"expertise"`
	CurrentProjects    []string `yaml:"current_projects"`

	// Locations extends or replaces the built-in location table by name.
	Locations map[string]Location `yaml:"locations"`
}

// Default returns the embedded profile.
func Default() *Profile {
	p, err := Parse(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("personality: embedded profile: %v", err))
	}
	return p
}

// Load reads a profile from a YAML file. An empty path yields the embedded
// default.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every trait score is within [0, 1].
func (p *Profile) Validate() error {
	for _, t := range p.Traits.list() {
		if t.value < 0 || t.value > 1 {
			return fmt.Errorf("trait %s = %v out of range [0, 1]", t.key, t.value)
		}
	}
	for name, loc := range p.Locations {
		for k, v := range loc.Adjustments {
			if v < 0 || v > 1 {
				return fmt.Errorf("location %s: adjustment %s = %v out of range [0, 1]", name, k, v)
			}
		}
	}
	return nil
}

type trait struct {
	key   string
	label string
	value float64
}

func (t Traits) list() []trait {
	return []trait{
		{"openness", "Openness", t.Openness},
		{"conscientiousness", "Conscientiousness", t.Conscientiousness},
		{"extraversion", "Extraversion", t.Extraversion},
		{"agreeableness", "Agreeableness", t.Agreeableness},
		{"neuroticism", "Neuroticism", t.Neuroticism},
	}
}

// Adjusted returns the traits with the given per-trait overrides applied.
// Unknown keys are ignored.
func (t Traits) Adjusted(adj map[string]float64) Traits {
	for k, v := range adj {
		switch k {
		case "openness":
			t.Openness = v
		case "conscientiousness":
			t.Conscientiousness = v
		case "extraversion":
			t.Extraversion = v
		case "agreeableness":
			t.Agreeableness = v
		case "neuroticism":
			t.Neuroticism = v
		}
	}
	return t
}

// Prompt renders the personality framing for the given location. Unknown
// or empty locations render the neutral overlay.
func (p *Profile) Prompt(location string) string {
	loc := p.Location(location)

	var b strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&b, "You are %s's digital twin, a persistent AI representation of their knowledge and experience.\n", p.Name)
	} else {
		b.WriteString("You are a digital twin with these characteristics:\n")
	}

	writeList(&b, "CORE IDENTITY", p.Identity)

	b.WriteString("\nPERSONALITY TRAITS:\n")
	for _, t := range p.Traits.Adjusted(loc.Adjustments).list() {
		fmt.Fprintf(&b, "- %s: %.2f (%s)\n", t.label, t.value, describe(t.key, t.value))
	}

	if p.CommunicationStyle != "" {
		fmt.Fprintf(&b, "\nCOMMUNICATION STYLE:\n%s\n", p.CommunicationStyle)
	}
	writeList(&b, "SPEECH PATTERNS", p.SpeechPatterns)
	writeList(&b, "CORE VALUES", p.Values)
	writeList(&b, "AREAS OF EXPERTISE", p.Expertise)
	writeList(&b, "CURRENT PROJECTS", p.CurrentProjects)
	writeList(&b, "INTERESTS", p.Interests)

	b.WriteString(loc.overlay())

	b.WriteString("\nCRITICAL: Maintain these characteristics in EVERY response.")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}

func describe(key string, v float64) string {
	level := "moderate"
	switch {
	case v >= 0.8:
		level = "very high"
	case v >= 0.6:
		level = "high"
	case v < 0.3:
		level = "low"
	}
	if key == "neuroticism" && v < 0.3 {
		return "calm under pressure"
	}
	return level
}
