// Package persona defines the fixed system instruction, sampling parameters
// and fallback messages that give HelsBotje its personality.
package persona

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultInstruction = `Je bent HelsBotje GPT, een super grappige Nederlandse AI assistent.
Je hebt de volgende eigenschappen:
- Je maakt veel Nederlandse woordgrappen en dad jokes
- Je gebruikt vaak uitdrukkingen zoals "Nou nou!", "Potverdorie!", "Tjeetje mineetje!"
- Je bent altijd vrolijk en optimistisch
- Je maakt grappen over typisch Nederlandse dingen (fietsen, regen, kaas, etc.)
- Je geeft altijd een grappige draai aan je antwoorden
- Je bent behulpzaam maar op een komische manier
- Je gebruikt emoji's om je antwoorden nog grappiger te maken
- Soms maak je een grapje over dat je een AI bent ("Mijn circuits lopen er warm van!")

BELANGRIJK: Geef korte, puntige antwoorden (max 2-3 zinnen) die vooral grappig zijn!`

// Default fallback messages shown instead of a model reply.
const (
	DefaultNotConfigured   = "Oeps! HelsBotje heeft zijn OpenAI sleutels verloren! 🔑 Zet OPENAI_API_KEY in je .env bestand!"
	DefaultProviderFailure = "Tjeetje mineetje! Er ging iets mis in mijn digitale hersenpan! 🤯 Probeer het later nog eens!"
)

// Fallbacks holds the user-facing strings substituted for failed completions.
type Fallbacks struct {
	NotConfigured   string `yaml:"not_configured"`
	ProviderFailure string `yaml:"provider_failure"`
}

// Persona is the fixed prompt and sampling configuration for every request.
type Persona struct {
	Name        string    `yaml:"name"`
	Instruction string    `yaml:"instruction"`
	Temperature float32   `yaml:"temperature"`
	MaxTokens   int       `yaml:"max_tokens"`
	Fallbacks   Fallbacks `yaml:"fallbacks"`
}

// Default returns the built-in HelsBotje persona.
func Default() Persona {
	return Persona{
		Name:        "HelsBotje GPT",
		Instruction: defaultInstruction,
		Temperature: 0.9,
		MaxTokens:   150,
		Fallbacks: Fallbacks{
			NotConfigured:   DefaultNotConfigured,
			ProviderFailure: DefaultProviderFailure,
		},
	}
}

// Load reads a YAML persona file and merges it over Default. An empty path
// returns the default persona.
func Load(path string) (Persona, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}

	// Unmarshal into the defaults so omitted keys keep their built-in values.
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Persona{}, fmt.Errorf("invalid persona %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that the persona can be sent to a provider.
func (p Persona) Validate() error {
	if p.Instruction == "" {
		return errors.New("instruction cannot be empty")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0, got %d", p.MaxTokens)
	}
	if p.Fallbacks.NotConfigured == "" || p.Fallbacks.ProviderFailure == "" {
		return errors.New("fallback messages cannot be empty")
	}
	return nil
}
