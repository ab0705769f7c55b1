// Package chunk splits extracted document text into bounded-size segments
// for embedding. Splitting is purely positional on whitespace-delimited
// words; no sentence or paragraph awareness.
package chunk

import "strings"

// DefaultMaxWords bounds chunk size in words when the caller passes no
// explicit limit.
const DefaultMaxWords = 3000

// Split cuts text into contiguous, non-overlapping word windows of at most
// maxWords words each, in original order. Only the final chunk may be
// shorter. Empty input yields an empty slice. Deterministic and pure.
func Split(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
