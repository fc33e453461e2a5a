package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Sampling Sampling
}

// Gemini implements Provider with the Google Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
	sampling  Sampling
}

// NewGemini creates a Gemini provider. The API key must be non-empty.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, wrap("gemini", ErrMissingCredential)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	return &Gemini{
		client:    client,
		modelName: name,
		sampling:  cfg.Sampling,
	}, nil
}

// Complete sends the persona as system instruction and the utterance as a
// single user turn.
func (g *Gemini) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.sampling.Temperature)
	model.SetMaxOutputTokens(int32(g.sampling.MaxTokens))
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userText))
	if err != nil {
		return "", wrap(g.Name(), err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return "", wrap(g.Name(), ErrNoContent)
	}
	return text, nil
}

// Name returns the provider name.
func (g *Gemini) Name() string { return "gemini" }

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.modelName }

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// firstCandidateText joins the text parts of the first candidate only.
func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}

var (
	_ Provider  = (*Gemini)(nil)
	_ Describer = (*Gemini)(nil)
)
