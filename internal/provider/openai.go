package provider

import (
	"context"
	"math"
	"strings"

	gptLib "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4-turbo-preview"

// OpenAIConfig configures the OpenAI chat completion provider.
type OpenAIConfig struct {
	APIKey   string
	Model    string
	BaseURL  string // Optional, for proxies and compatible APIs.
	Sampling Sampling
}

// OpenAI implements Provider with the OpenAI chat completions API.
type OpenAI struct {
	client   *gptLib.Client
	model    string
	sampling Sampling
}

// NewOpenAI creates an OpenAI provider. The API key must be non-empty.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, wrap("openai", ErrMissingCredential)
	}
	clientCfg := gptLib.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client:   gptLib.NewClientWithConfig(clientCfg),
		model:    model,
		sampling: cfg.Sampling,
	}, nil
}

// Complete sends the persona as a system message followed by one user message.
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	// go-openai omits a zero temperature, which the API reads as 1.0.
	temperature := o.sampling.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := gptLib.ChatCompletionRequest{
		Model: o.model,
		Messages: []gptLib.ChatCompletionMessage{
			{Role: gptLib.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gptLib.ChatMessageRoleUser, Content: userText},
		},
		Temperature: temperature,
		MaxTokens:   o.sampling.MaxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrap(o.Name(), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", wrap(o.Name(), ErrNoContent)
	}
	return resp.Choices[0].Message.Content, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string { return "openai" }

// Model returns the configured model name.
func (o *OpenAI) Model() string { return o.model }

var (
	_ Provider  = (*OpenAI)(nil)
	_ Describer = (*OpenAI)(nil)
)
