package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRouter(llm *fakeLLM) *Router {
	r := NewRouter(llm, slog.Default())
	r.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestRouterRuleLayer(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"english recency", "what is the latest door trim material"},
		{"japanese recency", "最新の衝突安全基準は？"},
		{"near-future year", "what changes in 2027"},
		{"market term", "competitor benchmark for seat frames"},
		{"japanese market term", "他社のシェアはどのくらいか"},
		{"regulation term", "which UN-R regulation applies"},
		{"japanese regulation term", "この法規の適用範囲は"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{responses: []string{`{"search": false}`}}
			router := newTestRouter(llm)

			assert.True(t, router.Decide(context.Background(), tt.query))
			assert.Zero(t, llm.calls, "rule hits must not consult the model")
		})
	}
}

func TestRouterModelLayer(t *testing.T) {
	t.Run("model says search", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{`{"search": true}`}}
		router := newTestRouter(llm)

		assert.True(t, router.Decide(context.Background(), "ドアトリムの設計意図を教えて"))
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("model says no search", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{`{"search": false}`}}
		router := newTestRouter(llm)

		assert.False(t, router.Decide(context.Background(), "ドアトリムの設計意図を教えて"))
	})

	t.Run("model failure defaults to false", func(t *testing.T) {
		llm := &fakeLLM{err: fmt.Errorf("connection refused")}
		router := newTestRouter(llm)

		assert.False(t, router.Decide(context.Background(), "ドアトリムの設計意図を教えて"))
	})

	t.Run("malformed response defaults to false", func(t *testing.T) {
		llm := &fakeLLM{responses: []string{"I think you should search the web."}}
		router := newTestRouter(llm)

		assert.False(t, router.Decide(context.Background(), "ドアトリムの設計意図を教えて"))
	})
}
