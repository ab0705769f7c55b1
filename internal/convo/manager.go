// Package convo maintains per-(owner, document) conversation history and
// runs the retrieval-augmented question/answer flow.
package convo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docuchat/internal/retrieval"
	"docuchat/internal/util"
	"docuchat/pkg/ai"
	"docuchat/pkg/domain"
	"docuchat/pkg/store"
)

// DefaultHistoryLimit bounds how many stored turns are read back into the
// prompt. Storage itself grows unbounded.
const DefaultHistoryLimit = 10

const groundingInstruction = "You answer questions based on provided document context only. If information is missing, say you cannot find it."

// Manager owns conversation state and prompt assembly for one store.
type Manager struct {
	store        store.ConversationStore
	retriever    *retrieval.Retriever
	embedder     ai.Embedder
	generator    ai.Generator
	topK         int
	historyLimit int
}

// Config wires Manager dependencies.
type Config struct {
	Store        store.ConversationStore
	Retriever    *retrieval.Retriever
	Embedder     ai.Embedder
	Generator    ai.Generator
	TopK         int
	HistoryLimit int
}

// NewManager builds a Manager; zero TopK/HistoryLimit select defaults.
func NewManager(cfg Config) *Manager {
	topK := cfg.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Manager{
		store:        cfg.Store,
		retriever:    cfg.Retriever,
		embedder:     cfg.Embedder,
		generator:    cfg.Generator,
		topK:         topK,
		historyLimit: historyLimit,
	}
}

// AppendTurn adds one turn to the end of the scope's history. The history
// container is created implicitly on first use.
func (m *Manager) AppendTurn(ctx context.Context, owner, filename, role, content string) error {
	msg := domain.Message{
		ID:        util.NewID(),
		Owner:     owner,
		Filename:  filename,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.AppendMessages(ctx, []domain.Message{msg}); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentContext returns the last limit turns in chronological order; an
// unknown scope yields an empty slice.
func (m *Manager) RecentContext(ctx context.Context, owner, filename string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = m.historyLimit
	}
	msgs, err := m.store.ListMessages(ctx, owner, filename, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// BuildPrompt assembles the generation request in fixed order: the
// grounding system instruction, a system message embedding the retrieved
// context, each history turn verbatim, and finally the new question.
// History must never precede or interleave with the grounding messages, or
// the model may answer from prior turns instead of retrieved context.
func BuildPrompt(ragContext string, history []domain.Message, question string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+3)
	messages = append(messages, ai.Message{Role: "system", Content: groundingInstruction})
	messages = append(messages, ai.Message{Role: "system", Content: "Document Content:\n" + ragContext})
	for _, turn := range history {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.Message{Role: "user", Content: question})
	return messages
}

// Ask answers a question from the scoped document: embed the question,
// retrieve the top-K chunks, assemble the prompt with recent history, call
// the generation service, and persist the (user, assistant) pair. A failed
// generation appends nothing, so the stored transcript never holds an
// unpaired turn.
func (m *Manager) Ask(ctx context.Context, owner, filename, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("question required")
	}
	queryVec, err := m.embedder.EmbedText(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}
	retrieved, err := m.retriever.Retrieve(ctx, queryVec, owner, filename, m.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	ragContext := strings.Join(retrieved, "\n\n")

	history, err := m.RecentContext(ctx, owner, filename, m.historyLimit)
	if err != nil {
		return domain.Answer{}, err
	}

	answer, err := m.generator.Generate(ctx, BuildPrompt(ragContext, history, question))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	now := time.Now().UTC()
	pair := []domain.Message{
		{
			ID:        util.NewID(),
			Owner:     owner,
			Filename:  filename,
			Role:      "user",
			Content:   question,
			CreatedAt: now,
		},
		{
			ID:        util.NewID(),
			Owner:     owner,
			Filename:  filename,
			Role:      "assistant",
			Content:   answer,
			CreatedAt: now,
		},
	}
	if err := m.store.AppendMessages(ctx, pair); err != nil {
		return domain.Answer{}, fmt.Errorf("save exchange: %w", err)
	}
	return domain.Answer{Answer: answer}, nil
}
