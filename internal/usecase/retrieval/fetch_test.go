package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
)

// fakeBlobStore serves canned payloads keyed by chunk-store key.
type fakeBlobStore struct {
	objects map[string][]byte
	errs    map[string]error
}

func (s *fakeBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return data, nil
}

func chunkPayload(t *testing.T, fragments ...domain.Fragment) []byte {
	t.Helper()
	data, err := domain.EncodeChunkPayload(fragments)
	require.NoError(t, err)
	return data
}

func TestFetcherNoReferences(t *testing.T) {
	fetcher := NewFetcher(&fakeBlobStore{}, slog.Default())

	fragments, names, err := fetcher.Fetch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, fragments)
	assert.Nil(t, names)
}

func TestFetcherMergesInReferenceOrder(t *testing.T) {
	store := &fakeBlobStore{objects: map[string][]byte{
		domain.ChunkKey("public/trim_plan.md"): chunkPayload(t,
			frag("trim_plan_001", "door trim plan", domain.DocTypeProductPlan, ""),
			frag("trim_plan_002", "trim material table", domain.DocTypeProductPlan, ""),
		),
		domain.ChunkKey("public/crash_reg.md"): chunkPayload(t,
			frag("crash_reg_001", "impact requirement", domain.DocTypeRegulation, ""),
		),
	}}
	fetcher := NewFetcher(store, slog.Default())

	fragments, names, err := fetcher.Fetch(context.Background(),
		[]string{"public/trim_plan.md", "public/crash_reg.md"})

	require.NoError(t, err)
	require.Len(t, fragments, 3)
	assert.Equal(t, "trim_plan_001", fragments[0].ID)
	assert.Equal(t, "trim_plan_002", fragments[1].ID)
	assert.Equal(t, "crash_reg_001", fragments[2].ID)
	assert.Equal(t, []string{"trim_plan", "crash_reg"}, names)
}

func TestFetcherSkipsBrokenDocuments(t *testing.T) {
	store := &fakeBlobStore{
		objects: map[string][]byte{
			domain.ChunkKey("public/good.md"): chunkPayload(t,
				frag("good_001", "usable fragment", "", "")),
			domain.ChunkKey("public/garbled.md"): []byte("{not json"),
		},
		errs: map[string]error{
			domain.ChunkKey("public/flaky.md"): fmt.Errorf("connection reset"),
		},
	}
	fetcher := NewFetcher(store, slog.Default())

	fragments, names, err := fetcher.Fetch(context.Background(),
		[]string{"public/missing.md", "public/garbled.md", "public/flaky.md", "public/good.md"})

	require.NoError(t, err, "per-document failures must not fail the fetch")
	require.Len(t, fragments, 1)
	assert.Equal(t, "good_001", fragments[0].ID)
	assert.Equal(t, []string{"good"}, names)
}

func TestFetcherDeduplicatesDisplayNames(t *testing.T) {
	payload := chunkPayload(t, frag("report_001", "shared body", "", ""))
	store := &fakeBlobStore{objects: map[string][]byte{
		domain.ChunkKey("public/report.md"):    payload,
		domain.ChunkKey("protected/report.md"): payload,
	}}
	fetcher := NewFetcher(store, slog.Default())

	fragments, names, err := fetcher.Fetch(context.Background(),
		[]string{"public/report.md", "protected/report.md"})

	require.NoError(t, err)
	assert.Len(t, fragments, 2)
	assert.Equal(t, []string{"report"}, names)
}
