package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dirigent/internal/config"
	"dirigent/internal/types"
)

// LocalInferenceProvider detects context through a local Ollama server.
type LocalInferenceProvider struct {
	name       string
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewLocalInferenceProvider creates a local provider. An empty endpoint
// defaults to the standard Ollama address.
func NewLocalInferenceProvider(name, endpoint, model string) *LocalInferenceProvider {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &LocalInferenceProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name implements ModelProvider.
func (p *LocalInferenceProvider) Name() string { return p.name }

// Kind implements ModelProvider.
func (p *LocalInferenceProvider) Kind() string { return config.KindLocalInference }

// IsAvailable checks the server's version endpoint.
func (p *LocalInferenceProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// DetectContext implements ModelProvider.
func (p *LocalInferenceProvider) DetectContext(ctx context.Context, text string) (*types.TaskContext, error) {
	reqBody := ollamaGenerateRequest{
		Model:  p.model,
		System: detectionSystemPrompt,
		Prompt: text,
		Stream: false,
		Format: "json",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseContextResponse(result.Response)
}
