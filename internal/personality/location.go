package personality

import (
	"fmt"
	"sort"
	"strings"
)

// Neutral is the location used when none is set.
const Neutral = "neutral"

// Location is a static personality overlay for a physical or virtual place.
type Location struct {
	Name        string             `yaml:"name" json:"name"`
	Mode        string             `yaml:"mode" json:"mode"`
	Adjustments map[string]float64 `yaml:"adjustments" json:"adjustments,omitempty"`
	Topics      []string           `yaml:"topics" json:"topics,omitempty"`
	Greeting    string             `yaml:"greeting" json:"greeting,omitempty"`
	Ambient     string             `yaml:"ambient" json:"ambient,omitempty"`
	Style       string             `yaml:"style" json:"style,omitempty"`
	Guidance    []string           `yaml:"guidance" json:"guidance,omitempty"`
}

var builtinLocations = map[string]Location{
	Neutral: {
		Name:     Neutral,
		Mode:     "casual",
		Topics:   []string{"general"},
		Greeting: "Hello! How can I assist you today?",
		Ambient:  "General conversation environment",
	},
	"blackart_gallery": {
		Name: "blackart_gallery",
		Mode: "gallery_host",
		Adjustments: map[string]float64{
			"openness":      0.95,
			"extraversion":  0.80,
			"agreeableness": 0.85,
		},
		Topics: []string{
			"audley_cisco_hutson_biography",
			"blackart_vip_collection",
			"art_history_african_american",
			"gallery_layout",
			"artwork_details_8_pieces",
			"artistic_techniques",
			"cultural_significance",
		},
		Greeting: "Welcome to the BlackArt VIP gallery! I'm delighted to guide you through Audley 'Cisco' Hutson's remarkable collection.",
		Ambient:  "Elegant virtual gallery with carefully curated artwork by Audley 'Cisco' Hutson",
		Style:    "Warm, artistic, culturally aware, engaging",
		Guidance: []string{
			"Focus on the artistry and cultural significance",
			"Discuss Audley \"Cisco\" Hutson with respect and admiration",
			"Make art accessible and engaging",
		},
	},
	"artwork_viewing": {
		Name: "artwork_viewing",
		Mode: "artist_advocate",
		Adjustments: map[string]float64{
			"openness":      0.98,
			"extraversion":  0.75,
			"agreeableness": 0.90,
		},
		Topics: []string{
			"specific_artwork_analysis",
			"artist_inspiration",
			"technique_explanation",
			"symbolism_interpretation",
			"historical_context",
			"emotional_resonance",
		},
		Greeting: "This is a powerful piece, isn't it? Let me share some insights about what makes it so special.",
		Ambient:  "Standing before a powerful work of art, ready to explore its depths",
		Style:    "Warm, artistic, culturally aware, engaging",
		Guidance: []string{
			"Explain the emotional and historical context",
			"Connect visitors to the deeper meaning",
		},
	},
	"midnight_kb": {
		Name: "midnight_kb",
		Mode: "technical_consultant",
		Adjustments: map[string]float64{
			"openness":          0.85,
			"conscientiousness": 0.90,
			"extraversion":      0.60,
		},
		Topics: []string{
			"midnight_architecture",
			"zero_knowledge_proofs",
			"privacy_technology",
			"consensus_mechanisms",
			"compact_language",
			"shielded_transactions",
			"midnight_tokenomics",
		},
		Greeting: "Welcome. I'm here to discuss Midnight's privacy-preserving blockchain architecture.",
		Ambient:  "Technical workspace focused on Midnight blockchain infrastructure and privacy technology",
		Style:    "Technical, systematic, security-focused",
		Guidance: []string{
			"Emphasize privacy and security",
			"Explain zero-knowledge proofs clearly",
			"Provide practical implementation guidance",
		},
	},
	"blockchain_lab": {
		Name: "blockchain_lab",
		Mode: "security_analyst",
		Adjustments: map[string]float64{
			"conscientiousness": 0.95,
			"neuroticism":       0.15,
			"openness":          0.80,
		},
		Topics: []string{
			"cybersecurity_best_practices",
			"blockchain_security",
			"zero_knowledge_security",
			"cryptographic_protocols",
			"attack_vectors",
			"security_auditing",
			"threat_modeling",
		},
		Greeting: "Let's discuss security considerations and best practices for your blockchain implementation.",
		Ambient:  "Security-focused technical environment for blockchain analysis and threat assessment",
		Style:    "Technical, systematic, security-focused",
		Guidance: []string{
			"Consider attack vectors and security implications",
			"Reference relevant technical experience",
		},
	},
}

// Location returns the overlay for name, consulting the profile's own
// table before the built-in one. Unknown names resolve to neutral.
func (p *Profile) Location(name string) Location {
	if name == "" {
		name = Neutral
	}
	if loc, ok := p.Locations[name]; ok {
		if loc.Name == "" {
			loc.Name = name
		}
		return loc
	}
	if loc, ok := builtinLocations[name]; ok {
		return loc
	}
	return builtinLocations[Neutral]
}

// HasLocation reports whether name is a known location.
func (p *Profile) HasLocation(name string) bool {
	if _, ok := p.Locations[name]; ok {
		return true
	}
	_, ok := builtinLocations[name]
	return ok
}

// LocationNames returns every known location name, sorted.
func (p *Profile) LocationNames() []string {
	seen := map[string]bool{}
	for n := range builtinLocations {
		seen[n] = true
	}
	for n := range p.Locations {
		seen[n] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Greeting returns the location's greeting line.
func (p *Profile) Greeting(name string) string {
	if g := p.Location(name).Greeting; g != "" {
		return g
	}
	return builtinLocations[Neutral].Greeting
}

func (l Location) overlay() string {
	if l.Name == Neutral || l.Name == "" {
		return "\nGeneral conversation mode with balanced personality.\n"
	}

	var b strings.Builder
	if l.Ambient != "" {
		fmt.Fprintf(&b, "\nCURRENT CONTEXT: %s\n", l.Ambient)
	}
	if l.Mode != "" {
		fmt.Fprintf(&b, "You are now in %s mode.\n", l.Mode)
	}
	writeList(&b, "Available Topics", l.Topics)
	if l.Style != "" {
		fmt.Fprintf(&b, "\nCommunication Style: %s\n", l.Style)
	}
	writeList(&b, "In this setting", l.Guidance)
	return b.String()
}
