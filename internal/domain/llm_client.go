package domain

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single chat message in an LLM request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMStreamChunk is one incremental piece of a streamed generation.
type LLMStreamChunk struct {
	Response string
	Done     bool
}

// LLMClient defines the capability to send chat messages to an LLM and
// receive textual responses, in batch or streamed form.
type LLMClient interface {
	Generate(ctx context.Context, messages []Message, maxTokens int) (*LLMResponse, error)
	GenerateStream(ctx context.Context, messages []Message, maxTokens int) (<-chan LLMStreamChunk, <-chan error, error)
	Version() string
}

// RateLimitError marks a provider-side throttle response. Generation
// callers retry these with backoff; every other error is terminal.
type RateLimitError struct {
	StatusCode int
	Detail     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited (%d): %s", e.StatusCode, e.Detail)
}

// IsRateLimit reports whether err is (or wraps) a rate-limit error.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
