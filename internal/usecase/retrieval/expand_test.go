package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpanderSuccess(t *testing.T) {
	llm := &fakeLLM{responses: []string{`["door trim material options", "interior panel trim design"]`}}
	expander := NewExpander(llm, 8, slog.Default())

	queries := expander.Expand(context.Background(), "what materials can we use for door trim")

	require.Len(t, queries, 3)
	assert.Equal(t, "what materials can we use for door trim", queries[0])
	assert.Equal(t, "door trim material options", queries[1])
	assert.Equal(t, "interior panel trim design", queries[2])
}

func TestExpanderSkipsShortQuery(t *testing.T) {
	llm := &fakeLLM{responses: []string{`["unused"]`}}
	expander := NewExpander(llm, 8, slog.Default())

	queries := expander.Expand(context.Background(), "trim")

	assert.Equal(t, []string{"trim"}, queries)
	assert.Zero(t, llm.calls)
}

func TestExpanderDegradesToOriginal(t *testing.T) {
	query := "what materials can we use for door trim"

	t.Run("llm error", func(t *testing.T) {
		llm := &fakeLLM{err: fmt.Errorf("timeout")}
		expander := NewExpander(llm, 8, slog.Default())

		assert.Equal(t, []string{query}, expander.Expand(context.Background(), query))
	})

	t.Run("no json array", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{"here are some ideas: door trim, panel"}}
		expander := NewExpander(llm, 8, slog.Default())

		assert.Equal(t, []string{query}, expander.Expand(context.Background(), query))
	})

	t.Run("array of wrong type", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{`[1, 2, 3]`}}
		expander := NewExpander(llm, 8, slog.Default())

		assert.Equal(t, []string{query}, expander.Expand(context.Background(), query))
	})
}

func TestExpanderCapsVariants(t *testing.T) {
	llm := &fakeLLM{responses: []string{`["a1", "a2", "a3", "a4", "a5"]`}}
	expander := NewExpander(llm, 8, slog.Default())

	queries := expander.Expand(context.Background(), "what materials can we use for door trim")

	assert.Len(t, queries, 4) // original + at most three variants
}
