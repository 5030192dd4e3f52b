package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"docqa-orchestrator/internal/domain"
)

// Fetcher loads pre-chunked fragment files for a set of document
// references concurrently. Per-file failures are logged and skipped so
// one broken document never sinks a request.
type Fetcher struct {
	store  domain.BlobStore
	logger *slog.Logger
}

// NewFetcher creates a fetcher over the given blob store.
func NewFetcher(store domain.BlobStore, logger *slog.Logger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// Fetch retrieves the fragments of every referenced document plus the
// deduplicated display names of the documents that yielded at least one
// fragment. Result order follows the input reference order.
func (f *Fetcher) Fetch(ctx context.Context, documentRefs []string) ([]domain.Fragment, []string, error) {
	if len(documentRefs) == 0 {
		return nil, nil, nil
	}

	perRef := make([][]domain.Fragment, len(documentRefs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range documentRefs {
		g.Go(func() error {
			key := domain.ChunkKey(ref)
			data, err := f.store.Get(gctx, key)
			if err != nil {
				if errors.Is(err, domain.ErrObjectNotFound) {
					f.logger.Warn("chunk_file_missing",
						slog.String("document", ref),
						slog.String("key", key))
					return nil
				}
				f.logger.Warn("chunk_fetch_failed",
					slog.String("document", ref),
					slog.String("error", err.Error()))
				return nil
			}

			fragments, err := domain.DecodeChunkPayload(data)
			if err != nil {
				f.logger.Warn("chunk_payload_invalid",
					slog.String("document", ref),
					slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			perRef[i] = fragments
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var fragments []domain.Fragment
	var names []string
	seen := make(map[string]struct{}, len(documentRefs))
	for i, ref := range documentRefs {
		if len(perRef[i]) == 0 {
			continue
		}
		fragments = append(fragments, perRef[i]...)
		name := domain.DisplayName(ref)
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	f.logger.Info("chunks_fetched",
		slog.Int("document_count", len(documentRefs)),
		slog.Int("fragment_count", len(fragments)),
		slog.Int("source_count", len(names)))
	return fragments, names, nil
}
