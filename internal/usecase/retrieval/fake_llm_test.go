package retrieval

import (
	"context"

	"docqa-orchestrator/internal/domain"
)

// fakeLLM returns canned responses, in order, for Generate calls.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &domain.LLMResponse{Text: f.responses[idx], Done: true}, nil
}

func (f *fakeLLM) GenerateStream(ctx context.Context, messages []domain.Message, maxTokens int) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	resp, err := f.Generate(ctx, messages, maxTokens)
	if err != nil {
		return nil, nil, err
	}
	chunks := make(chan domain.LLMStreamChunk, 1)
	errs := make(chan error)
	chunks <- domain.LLMStreamChunk{Response: resp.Text, Done: true}
	close(chunks)
	close(errs)
	return chunks, errs, nil
}

func (f *fakeLLM) Version() string { return "fake" }

var _ domain.LLMClient = (*fakeLLM)(nil)
