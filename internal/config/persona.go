package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the voice the LLM is asked to write in, plus canned replies
// used when the LLM is unavailable.
type Persona struct {
	Name         string   `yaml:"name"`
	SystemPrompt string   `yaml:"system_prompt"`
	Fallbacks    []string `yaml:"fallbacks"`
}

func DefaultPersona() Persona {
	return Persona{
		Name: "creator",
		SystemPrompt: "You ghost-write chat replies for a content creator talking with subscribers. " +
			"Be warm, playful and flirty while staying tasteful. Keep replies short, use at most one emoji, " +
			"never reveal that you are an assistant, and never promise anything that was not offered.",
		Fallbacks: []string{
			"Hey you 😊 got a bit distracted, tell me more?",
			"Sorry for the wait! What are you up to right now?",
			"You always know how to make me smile. What's on your mind?",
		},
	}
}

// LoadPersona reads a YAML persona file. An empty path returns the default
// persona; missing fields fall back to the default values.
func LoadPersona(path string) (Persona, error) {
	def := DefaultPersona()
	if strings.TrimSpace(path) == "" {
		return def, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("persona: %w", err)
	}
	var p Persona
	if err := yaml.Unmarshal(b, &p); err != nil {
		return def, fmt.Errorf("persona %s: %w", path, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = def.Name
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = def.SystemPrompt
	}
	var fb []string
	for _, f := range p.Fallbacks {
		if f = strings.TrimSpace(f); f != "" {
			fb = append(fb, f)
		}
	}
	if len(fb) == 0 {
		fb = def.Fallbacks
	}
	p.Fallbacks = fb
	return p, nil
}

// Fallback picks a canned reply deterministically from seed.
func (p Persona) Fallback(seed int) string {
	if len(p.Fallbacks) == 0 {
		return ""
	}
	n := len(p.Fallbacks)
	return p.Fallbacks[((seed%n)+n)%n]
}
