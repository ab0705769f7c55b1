// Package summarize produces structured document summaries through the
// generation service.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"docuchat/pkg/ai"
)

// Mode selects the system instruction variant. It does not change the
// summarization algorithm.
type Mode string

const (
	// ModeFull summarizes raw extracted text directly.
	ModeFull Mode = "full"
	// ModeRAG summarizes retrieved-chunk context for large documents.
	ModeRAG Mode = "rag"
)

// DefaultInputMaxChars caps the context submitted to the model. A
// conservative bound well under the model context window; longer input is
// silently truncated, not chunked further.
const DefaultInputMaxChars = 4000

const systemPromptFull = "You are an expert summarizer AI specialized in extracting meaning from documents."

const systemPromptRAG = "You are an expert summarizer AI specialized in extracting meaning from long documents using RAG."

// Summarizer builds a fixed-structure summary prompt and calls the
// generation service.
type Summarizer struct {
	generator     ai.Generator
	inputMaxChars int
}

// NewSummarizer creates a Summarizer. inputMaxChars <= 0 selects the
// default cap.
func NewSummarizer(generator ai.Generator, inputMaxChars int) *Summarizer {
	if inputMaxChars <= 0 {
		inputMaxChars = DefaultInputMaxChars
	}
	return &Summarizer{generator: generator, inputMaxChars: inputMaxChars}
}

// Summarize produces a free-text summary of text. The result is trimmed;
// no further validation of the model output is applied.
func (s *Summarizer) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	messages := []ai.Message{
		{Role: "system", Content: systemPrompt(mode)},
		{Role: "user", Content: s.buildPrompt(text)},
	}
	summary, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func systemPrompt(mode Mode) string {
	if mode == ModeRAG {
		return systemPromptRAG
	}
	return systemPromptFull
}

func (s *Summarizer) buildPrompt(text string) string {
	return fmt.Sprintf(`You are an expert summarizer AI that provides accurate, structured, and human-like summaries.

Analyze the following document carefully and provide a professional summary.
Focus on:
- The main objective or topic
- Key arguments, facts, or sections
- Important names, dates, or numbers
- Conclusions or recommendations
- Tone or intent of the author (if clear)

Output format:
Summary:
(Write 5-10 bullet points capturing key insights.)

Avoid repetition. Use plain and clear English.

Document Content:
%s`, truncate(text, s.inputMaxChars))
}

func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
