package persona

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rishi-narain/ad-tester/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// profile is the authored form of a built-in persona. The structured
// lists are flattened into SystemPrompt on load.
type profile struct {
	ID                string   `yaml:"id"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	Motivations       []string `yaml:"motivations"`
	PainPoints        []string `yaml:"pain_points"`
	EmotionalTriggers []string `yaml:"emotional_triggers"`
	BuyingBehavior    string   `yaml:"buying_behavior"`
}

// Defaults returns the built-in catalog in its canonical order.
func Defaults() []models.Persona {
	personas, err := ParseProfiles(defaultsYAML)
	if err != nil {
		// embedded file is covered by tests
		panic(fmt.Sprintf("persona: invalid embedded defaults: %v", err))
	}
	return personas
}

// LoadFile reads persona profiles from path, or returns Defaults when
// path is empty.
func LoadFile(path string) ([]models.Persona, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}
	personas, err := ParseProfiles(data)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("personas file %s is empty", path)
	}
	return personas, nil
}

// ParseProfiles decodes a YAML list of persona profiles.
func ParseProfiles(data []byte) ([]models.Persona, error) {
	var profiles []profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode persona profiles: %w", err)
	}

	personas := make([]models.Persona, 0, len(profiles))
	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if p.ID == "" || p.Title == "" {
			return nil, fmt.Errorf("persona profile %d: id and title are required", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("persona profile %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true

		personas = append(personas, models.Persona{
			ID:           p.ID,
			Title:        p.Title,
			Description:  p.Description,
			SystemPrompt: p.render(),
			Position:     i,
		})
	}
	return personas, nil
}

func (p profile) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Persona: %s\nDescription: %s\n", p.Title, p.Description)
	writeList(&b, "Motivations", p.Motivations)
	writeList(&b, "Pain Points", p.PainPoints)
	writeList(&b, "Emotional Triggers", p.EmotionalTriggers)
	fmt.Fprintf(&b, "\nBuying Behavior:\n%s", strings.TrimSpace(p.BuyingBehavior))
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
