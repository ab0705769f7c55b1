// Package tokens counts model tokens in extracted text. The count routes
// documents between full-text and retrieval-augmented summarization.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the tokenizer of the embedding and generation
// models in use.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken BPE encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the named encoding (DefaultEncoding when empty).
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
