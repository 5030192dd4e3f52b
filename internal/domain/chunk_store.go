package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrObjectNotFound signals that a blob-store key has no object behind
// it. For chunk lookups this is a normal outcome: ingestion of a fresh
// upload may simply not have finished yet.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the read-only view of the object store holding the
// pre-chunked document payloads produced by the ingestion pipeline.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

const (
	uploadPrefix    = "public/"
	processedPrefix = "protected/"
	chunkFileSuffix = "_chunks.json"
)

// ChunkKey derives the chunk-store key for an uploaded document
// reference. The upload namespace is rewritten to the processed
// namespace, the file extension is stripped, and the chunk-file suffix
// is appended. The transform is pure and total: every reference maps to
// exactly one key.
func ChunkKey(documentRef string) string {
	rewritten := documentRef
	if strings.HasPrefix(rewritten, uploadPrefix) {
		rewritten = processedPrefix + strings.TrimPrefix(rewritten, uploadPrefix)
	} else if !strings.HasPrefix(rewritten, processedPrefix) {
		rewritten = processedPrefix + rewritten
	}
	if ext := path.Ext(rewritten); ext != "" {
		rewritten = strings.TrimSuffix(rewritten, ext)
	}
	return rewritten + chunkFileSuffix
}

// DisplayName returns the human-readable name for a document reference:
// the base file name without its extension.
func DisplayName(documentRef string) string {
	base := path.Base(documentRef)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// utf8BOM is prepended by the ingestion pipeline's markdown writer and
// survives into some chunk payloads.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeChunkPayload parses a chunk-file payload into fragments.
func DecodeChunkPayload(data []byte) ([]Fragment, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var fragments []Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, fmt.Errorf("failed to decode chunk payload: %w", err)
	}
	return fragments, nil
}

// EncodeChunkPayload renders fragments as a chunk-file payload, the
// inverse of DecodeChunkPayload.
func EncodeChunkPayload(fragments []Fragment) ([]byte, error) {
	data, err := json.MarshalIndent(fragments, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode chunk payload: %w", err)
	}
	return data, nil
}
