// Package provider implements the text-completion capability used by the
// gateway, backed by hosted LLM APIs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoContent is returned when a provider answers without a usable completion.
	ErrNoContent = errors.New("provider returned no content")
	// ErrMissingCredential is returned when a provider is built without an API key.
	ErrMissingCredential = errors.New("missing provider credential")
	// ErrUnknownProvider is returned by New for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider turns a persona instruction and a single user utterance into text.
type Provider interface {
	// Complete sends a two-turn prompt and returns the first completion's text.
	// Failures are reported as *ProviderError.
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Describer is implemented by providers that can report what they talk to.
type Describer interface {
	Name() string
	Model() string
}

// ProviderError wraps any failure of a provider call.
//
//nolint:revive // Name mirrors the error taxonomy used in logs.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: name, Err: err}
}

// Sampling holds the fixed generation parameters sent with every request.
type Sampling struct {
	Temperature float32
	MaxTokens   int
}

// Config selects and configures a provider.
type Config struct {
	Name          string // "openai" or "gemini"
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	Sampling      Sampling
}

// New builds the provider named in cfg. It returns an error wrapping
// ErrMissingCredential when the selected provider has no API key.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "openai":
		p, err := NewOpenAI(OpenAIConfig{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			BaseURL:  cfg.OpenAIBaseURL,
			Sampling: cfg.Sampling,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini":
		p, err := NewGemini(ctx, GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Sampling: cfg.Sampling,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}
