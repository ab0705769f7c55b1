package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"docuchat/internal/retrieval"
	"docuchat/internal/util"
	"docuchat/pkg/ai"
	"docuchat/pkg/domain"
	"docuchat/pkg/store"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

type stubGenerator struct {
	answer string
	err    error
	got    []ai.Message
}

func (s *stubGenerator) Generate(_ context.Context, msgs []ai.Message) (string, error) {
	s.got = msgs
	return s.answer, s.err
}

func seedChunks(t *testing.T, st store.ChunkStore, owner, filename string, contents []string) {
	t.Helper()
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{
			ID:        util.NewID(),
			Owner:     owner,
			Filename:  filename,
			Seq:       i,
			Content:   c,
			Embedding: []float32{1, 0},
		}
	}
	if err := st.ReplaceChunks(context.Background(), owner, filename, chunks); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}
}

func newTestManager(st store.Store, emb ai.Embedder, gen ai.Generator) *Manager {
	return NewManager(Config{
		Store:     st,
		Retriever: retrieval.NewRetriever(st),
		Embedder:  emb,
		Generator: gen,
	})
}

func TestBuildPromptOrder(t *testing.T) {
	history := []domain.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}
	msgs := BuildPrompt("chunk one\n\nchunk two", history, "second question")

	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "provided document context only") {
		t.Fatalf("first message is not the grounding instruction: %+v", msgs[0])
	}
	if msgs[1].Role != "system" || !strings.HasPrefix(msgs[1].Content, "Document Content:\n") {
		t.Fatalf("second message is not the context message: %+v", msgs[1])
	}
	if !strings.Contains(msgs[1].Content, "chunk two") {
		t.Fatalf("context message missing retrieved text: %q", msgs[1].Content)
	}
	if msgs[2].Content != "first question" || msgs[3].Content != "first answer" {
		t.Fatalf("history out of order: %+v", msgs[2:4])
	}
	if msgs[4].Role != "user" || msgs[4].Content != "second question" {
		t.Fatalf("question is not last: %+v", msgs[4])
	}
}

func TestAskPersistsBothTurns(t *testing.T) {
	st := store.NewMemoryStore()
	seedChunks(t, st, "a@b.c", "notes.txt", []string{"the sky is blue"})

	gen := &stubGenerator{answer: "It is blue."}
	m := newTestManager(st, &stubEmbedder{vec: []float32{1, 0}}, gen)

	ans, err := m.Ask(context.Background(), "a@b.c", "notes.txt", "What color is the sky?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Answer != "It is blue." {
		t.Fatalf("got answer %q", ans.Answer)
	}

	msgs, err := st.ListMessages(context.Background(), "a@b.c", "notes.txt", 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d stored messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("stored roles out of order: %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "It is blue." {
		t.Fatalf("stored assistant content %q", msgs[1].Content)
	}
}

func TestAskIncludesHistoryInPrompt(t *testing.T) {
	st := store.NewMemoryStore()
	seedChunks(t, st, "a@b.c", "notes.txt", []string{"context text"})

	gen := &stubGenerator{answer: "ok"}
	m := newTestManager(st, &stubEmbedder{vec: []float32{1, 0}}, gen)

	ctx := context.Background()
	if _, err := m.Ask(ctx, "a@b.c", "notes.txt", "first?"); err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if _, err := m.Ask(ctx, "a@b.c", "notes.txt", "second?"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	// Second call: grounding + context + prior (user, assistant) pair + question.
	if len(gen.got) != 5 {
		t.Fatalf("got %d prompt messages, want 5", len(gen.got))
	}
	if gen.got[2].Content != "first?" || gen.got[3].Content != "ok" {
		t.Fatalf("prior exchange missing from prompt: %+v", gen.got[2:4])
	}
}

func TestAskHistoryWindowKeepsLastTen(t *testing.T) {
	st := store.NewMemoryStore()
	seedChunks(t, st, "a@b.c", "notes.txt", []string{"context text"})

	gen := &stubGenerator{answer: "ack"}
	m := newTestManager(st, &stubEmbedder{vec: []float32{1, 0}}, gen)

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if _, err := m.Ask(ctx, "a@b.c", "notes.txt", fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	// 14 stored turns before the final call, window of 10 plus the 3 fixed
	// messages: oldest four turns must have aged out.
	if len(gen.got) != 13 {
		t.Fatalf("got %d prompt messages, want 13", len(gen.got))
	}
	if gen.got[2].Content != "q2" {
		t.Fatalf("window starts at %q, want q2", gen.got[2].Content)
	}
	if gen.got[len(gen.got)-1].Content != "q7" {
		t.Fatalf("question is not last: %q", gen.got[len(gen.got)-1].Content)
	}
}

func TestAskGenerationFailureStoresNothing(t *testing.T) {
	st := store.NewMemoryStore()
	seedChunks(t, st, "a@b.c", "notes.txt", []string{"context text"})

	gen := &stubGenerator{err: fmt.Errorf("%w: upstream 500", ai.ErrGenerationService)}
	m := newTestManager(st, &stubEmbedder{vec: []float32{1, 0}}, gen)

	_, err := m.Ask(context.Background(), "a@b.c", "notes.txt", "anything?")
	if !errors.Is(err, ai.ErrGenerationService) {
		t.Fatalf("got err %v, want generation service error", err)
	}

	msgs, err := st.ListMessages(context.Background(), "a@b.c", "notes.txt", 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("failed exchange left %d stored messages", len(msgs))
	}
}

func TestAskEmbeddingFailure(t *testing.T) {
	st := store.NewMemoryStore()
	m := newTestManager(st, &stubEmbedder{err: fmt.Errorf("%w: timeout", ai.ErrEmbeddingService)}, &stubGenerator{})

	_, err := m.Ask(context.Background(), "a@b.c", "notes.txt", "anything?")
	if !errors.Is(err, ai.ErrEmbeddingService) {
		t.Fatalf("got err %v, want embedding service error", err)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	m := newTestManager(store.NewMemoryStore(), &stubEmbedder{}, &stubGenerator{})
	if _, err := m.Ask(context.Background(), "a@b.c", "notes.txt", "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestAskUnknownScopeStillAnswers(t *testing.T) {
	st := store.NewMemoryStore()
	gen := &stubGenerator{answer: "I cannot find that in the document."}
	m := newTestManager(st, &stubEmbedder{vec: []float32{1, 0}}, gen)

	ans, err := m.Ask(context.Background(), "a@b.c", "missing.txt", "anything?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Answer == "" {
		t.Fatal("expected an answer even with no stored chunks")
	}
	if !strings.HasSuffix(gen.got[1].Content, "Document Content:\n") {
		t.Fatalf("context message should carry empty context: %q", gen.got[1].Content)
	}
}
