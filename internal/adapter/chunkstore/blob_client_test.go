package chunkstore

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
)

func TestBlobGatewayGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		switch r.URL.EscapedPath() {
		case "/objects/protected%2Ftrim_plan_chunks.json":
			_, _ = w.Write([]byte(`[{"id": "trim_001", "text": "body"}]`))
		case "/objects/protected%2Fmissing_chunks.json":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewBlobGatewayClient(server.URL, time.Second, slog.Default())

	t.Run("found", func(t *testing.T) {
		data, err := client.Get(context.Background(), "protected/trim_plan_chunks.json")
		require.NoError(t, err)
		fragments, err := domain.DecodeChunkPayload(data)
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, "trim_001", fragments[0].ID)
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		_, err := client.Get(context.Background(), "protected/missing_chunks.json")
		assert.ErrorIs(t, err, domain.ErrObjectNotFound)
	})

	t.Run("server error is not a miss", func(t *testing.T) {
		_, err := client.Get(context.Background(), "protected/broken_chunks.json")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrObjectNotFound)
	})
}
