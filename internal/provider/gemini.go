package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

// GeminiProvider detects context through Google's Gemini API.
type GeminiProvider struct {
	name   string
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. An empty API key is
// a construction error; an empty model gets a flash-tier default.
func NewGeminiProvider(name, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{
		name:   name,
		client: client,
		model:  model,
	}, nil
}

// Name implements ModelProvider.
func (p *GeminiProvider) Name() string { return p.name }

// Kind implements ModelProvider.
func (p *GeminiProvider) Kind() string { return config.KindGemini }

// IsAvailable checks the model is resolvable. The SDK caches connections,
// so this is a light round trip.
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	_, err := p.client.Models.Get(ctx, p.model, nil)
	return err == nil
}

// DetectContext implements ModelProvider.
func (p *GeminiProvider) DetectContext(ctx context.Context, text string) (*types.TaskContext, error) {
	temp := float32(0.1)
	result, err := p.client.Models.GenerateContent(ctx,
		p.model,
		genai.Text(text),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(detectionSystemPrompt, genai.RoleUser),
			Temperature:       &temp,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	response := result.Text()
	if response == "" {
		return nil, fmt.Errorf("no completion returned")
	}
	return parseContextResponse(response)
}
