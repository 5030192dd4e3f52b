package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
)

func TestGenerate(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"message": {"content": "  grounded answer [1].  "}, "done": true}`))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "qwen3:32b", time.Second, nil, slog.Default())

	resp, err := client.Generate(context.Background(),
		[]domain.Message{{Role: "user", Content: "question"}}, 1024)

	require.NoError(t, err)
	assert.Equal(t, "grounded answer [1].", resp.Text, "whitespace padding is trimmed")
	assert.True(t, resp.Done)

	assert.Equal(t, "qwen3:32b", captured.Model)
	assert.False(t, captured.Stream)
	assert.Equal(t, float64(1024), captured.Options["num_predict"])
}

func TestGenerateRateLimited(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", status)
		}))

		client := NewChatClient(server.URL, "qwen3:32b", time.Second, nil, slog.Default())
		_, err := client.Generate(context.Background(),
			[]domain.Message{{Role: "user", Content: "question"}}, 0)

		assert.True(t, domain.IsRateLimit(err), "status %d must map to a rate-limit error", status)
		server.Close()
	}
}

func TestGenerateServerErrorIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "qwen3:32b", time.Second, nil, slog.Default())
	_, err := client.Generate(context.Background(),
		[]domain.Message{{Role: "user", Content: "question"}}, 0)

	require.Error(t, err)
	assert.False(t, domain.IsRateLimit(err))
}

func TestGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		_, _ = w.Write([]byte(`{"message": {"content": "品質ゲート"}, "done": false}` + "\n"))
		_, _ = w.Write([]byte(`{"message": {"content": "は三つです [1]。"}, "done": false}` + "\n"))
		_, _ = w.Write([]byte(`{"message": {"content": ""}, "done": true}` + "\n"))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "qwen3:32b", time.Second, nil, slog.Default())

	chunks, errs, err := client.GenerateStream(context.Background(),
		[]domain.Message{{Role: "user", Content: "question"}}, 0)
	require.NoError(t, err)

	var text string
	var sawDone bool
	for chunk := range chunks {
		text += chunk.Response
		if chunk.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "品質ゲートは三つです [1]。", text)
	assert.True(t, sawDone)
	assert.NoError(t, <-errs)
}

func TestGenerateStreamMalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": {"content": "partial"}, "done": false}` + "\n"))
		_, _ = w.Write([]byte("{garbled\n"))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "qwen3:32b", time.Second, nil, slog.Default())

	chunks, errs, err := client.GenerateStream(context.Background(),
		[]domain.Message{{Role: "user", Content: "question"}}, 0)
	require.NoError(t, err)

	for range chunks {
	}
	assert.Error(t, <-errs)
}

func TestVersion(t *testing.T) {
	client := NewChatClient("http://localhost:11434", "qwen3:32b", time.Second, NewSharedLimiter(4), slog.Default())
	assert.Equal(t, "qwen3:32b", client.Version())
}
