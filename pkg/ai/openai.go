package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient calls any OpenAI-compatible API for embeddings and chat
// completions. Works with the hosted API, vLLM, LiteLLM, LocalAI, and other
// self-hosted gateways.
type OpenAIClient struct {
	baseURL         string
	apiKey          string
	embeddingModel  string
	generationModel string
	httpClient      *http.Client
}

// OpenAIConfig configures an OpenAIClient.
// BaseURL should include the /v1 prefix, e.g. "https://api.openai.com/v1".
// APIKey can be empty for local endpoints that do not require authentication.
type OpenAIConfig struct {
	BaseURL         string
	APIKey          string
	EmbeddingModel  string
	GenerationModel string
}

// NewOpenAIClient builds a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:          strings.TrimSpace(cfg.APIKey),
		embeddingModel:  strings.TrimSpace(cfg.EmbeddingModel),
		generationModel: strings.TrimSpace(cfg.GenerationModel),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// EmbedText implements Embedder using the /embeddings endpoint.
func (c *OpenAIClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model required", ErrEmbeddingService)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: embedding text required", ErrEmbeddingService)
	}
	reqBody := oaiEmbedRequest{
		Model: c.embeddingModel,
		Input: text,
	}
	var resp oaiEmbedResponse
	if err := c.doJSON(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: response missing embedding", ErrEmbeddingService)
	}
	return resp.Data[0].Embedding, nil
}

// Generate implements Generator using the /chat/completions endpoint.
// Messages are sent verbatim, in order.
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if c.generationModel == "" {
		return "", fmt.Errorf("%w: generation model required", ErrGenerationService)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: messages required", ErrGenerationService)
	}
	reqBody := oaiChatRequest{
		Model:    c.generationModel,
		Messages: messages,
	}
	var resp oaiChatResponse
	if err := c.doJSON(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrGenerationService)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationService)
	}
	return text, nil
}

func (c *OpenAIClient) doJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("api error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OpenAI-compatible request/response types.

type oaiEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type oaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type oaiChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
