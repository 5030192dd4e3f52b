package chunkstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"docqa-orchestrator/internal/domain"
)

const cacheKeyPrefix = "chunks:"

// CachedBlobStore is a read-through cache in front of the blob gateway.
// Chunk payloads are immutable once written by ingestion, so a short
// TTL only bounds memory, not staleness. Cache failures degrade to the
// underlying store.
type CachedBlobStore struct {
	inner  domain.BlobStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedBlobStore wraps inner with a redis read-through cache.
func NewCachedBlobStore(inner domain.BlobStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBlobStore {
	return &CachedBlobStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	cacheKey := cacheKeyPrefix + key

	data, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Warn("chunk_cache_read_failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	data, err = s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if setErr := s.client.Set(ctx, cacheKey, data, s.ttl).Err(); setErr != nil {
		s.logger.Warn("chunk_cache_write_failed",
			slog.String("key", key),
			slog.String("error", setErr.Error()))
	}
	return data, nil
}

var _ domain.BlobStore = (*CachedBlobStore)(nil)
