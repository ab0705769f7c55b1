package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docuchat/pkg/ai"
)

type stubGenerator struct {
	got    []ai.Message
	answer string
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	g.got = messages
	return g.answer, g.err
}

func TestSummarizeBuildsStructuredPrompt(t *testing.T) {
	gen := &stubGenerator{answer: "  - point one\n- point two  "}
	s := NewSummarizer(gen, 0)

	summary, err := s.Summarize(context.Background(), "document body", ModeFull)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "- point one\n- point two" {
		t.Fatalf("summary not trimmed: %q", summary)
	}
	if len(gen.got) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(gen.got))
	}
	if gen.got[0].Role != "system" || gen.got[0].Content != systemPromptFull {
		t.Fatalf("unexpected system message: %+v", gen.got[0])
	}
	userPrompt := gen.got[1].Content
	for _, want := range []string{"5-10 bullet points", "Document Content:", "document body"} {
		if !strings.Contains(userPrompt, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, userPrompt)
		}
	}
}

func TestSummarizeModeSelectsSystemVariant(t *testing.T) {
	gen := &stubGenerator{answer: "ok"}
	s := NewSummarizer(gen, 0)

	if _, err := s.Summarize(context.Background(), "text", ModeRAG); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if gen.got[0].Content != systemPromptRAG {
		t.Fatalf("RAG mode used wrong system prompt: %q", gen.got[0].Content)
	}
}

func TestSummarizeTruncatesInput(t *testing.T) {
	gen := &stubGenerator{answer: "ok"}
	s := NewSummarizer(gen, 50)

	long := strings.Repeat("word ", 100)
	if _, err := s.Summarize(context.Background(), long, ModeFull); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	userPrompt := gen.got[1].Content
	idx := strings.Index(userPrompt, "Document Content:\n")
	if idx < 0 {
		t.Fatalf("prompt missing content section")
	}
	body := userPrompt[idx+len("Document Content:\n"):]
	if len([]rune(body)) > 50 {
		t.Fatalf("input not truncated: %d chars", len([]rune(body)))
	}
}

func TestSummarizePropagatesGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: ai.ErrGenerationService}
	s := NewSummarizer(gen, 0)

	_, err := s.Summarize(context.Background(), "text", ModeFull)
	if !errors.Is(err, ai.ErrGenerationService) {
		t.Fatalf("expected generation error, got %v", err)
	}
}
