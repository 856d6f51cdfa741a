// Package tokenizer measures and truncates text in model tokens.
package tokenizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens and truncates text at a token boundary.
type Counter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// Tiktoken counts BPE tokens with a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// New loads the named tiktoken encoding, e.g. cl100k_base.
func New(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns the longest token prefix of text holding at most maxTokens tokens.
func (t *Tiktoken) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// Words approximates tokens by whitespace-separated words. It is used when a
// tiktoken encoding cannot be loaded.
type Words struct{}

// Count returns the number of words in text.
func (Words) Count(text string) int {
	return len(strings.Fields(text))
}

// Truncate keeps the first maxTokens words of text.
func (Words) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}
