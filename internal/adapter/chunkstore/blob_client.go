package chunkstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/infra/logger"
)

// BlobGatewayClient reads objects from the storage gateway fronting the
// bucket that holds processed chunk payloads.
type BlobGatewayClient struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

// NewBlobGatewayClient constructs a read-only client for the blob
// gateway. If client is nil, a default http.Client is created with the
// given timeout.
func NewBlobGatewayClient(baseURL string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *BlobGatewayClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &BlobGatewayClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
		logger:  logger,
	}
}

// Get fetches one object by key. A 404 maps to domain.ErrObjectNotFound
// so callers can treat ingestion latency as a soft miss.
func (c *BlobGatewayClient) Get(ctx context.Context, key string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/objects/%s", c.BaseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call blob gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.FromContext(ctx, c.logger).Warn("blob_gateway_error",
			slog.String("key", key),
			slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("blob gateway returned %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob body: %w", err)
	}
	return data, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ domain.BlobStore = (*BlobGatewayClient)(nil)
