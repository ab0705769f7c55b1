package ai

import (
	"context"
	"errors"
)

// Message is one role/content pair in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder converts text into a fixed-dimension vector. One upstream call
// per invocation; failures are not retried here.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion from an ordered message sequence.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Upstream failure sentinels. Callers branch with errors.Is; the wrapped
// error carries provider detail.
var (
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrGenerationService = errors.New("generation service error")
)
