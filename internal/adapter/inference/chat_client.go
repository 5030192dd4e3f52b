package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"docqa-orchestrator/internal/domain"
)

const keepAliveSeconds = 600

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string                 `json:"model"`
	Messages  []chatMessage          `json:"messages"`
	Stream    bool                   `json:"stream"`
	KeepAlive int                    `json:"keep_alive"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// ChatClient sends chat requests to the inference service. One instance
// wraps one model; the generation and auxiliary models get separate
// instances sharing the pooled transport and the rate limiter.
type ChatClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChatClient constructs a chat client for the given endpoint and
// model. limiter may be shared between instances to respect a single
// provider-wide quota; if nil, calls are not throttled client-side.
func NewChatClient(baseURL, model string, timeout time.Duration, limiter *rate.Limiter, logger *slog.Logger, client ...*http.Client) *ChatClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &ChatClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  c,
		limiter: limiter,
		logger:  logger,
	}
}

// NewSharedLimiter builds a limiter sized for the provider's documented
// throughput, shared by all clients talking to that provider.
func NewSharedLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// Generate sends the messages and returns the complete assistant reply.
func (c *ChatClient) Generate(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	resp, err := c.do(ctx, messages, maxTokens, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(chatResp.Message.Content),
		Done: chatResp.Done,
	}, nil
}

// GenerateStream sends the messages and forwards incremental chunks as
// they arrive. The chunk channel closes when the stream ends; transport
// errors mid-stream are delivered on the error channel.
func (c *ChatClient) GenerateStream(ctx context.Context, messages []domain.Message, maxTokens int) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	resp, err := c.do(ctx, messages, maxTokens, true)
	if err != nil {
		return nil, nil, err
	}

	chunks := make(chan domain.LLMStreamChunk, 8)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chatResp chatResponse
			if err := json.Unmarshal(line, &chatResp); err != nil {
				errs <- fmt.Errorf("failed to decode stream chunk: %w", err)
				return
			}
			chunk := domain.LLMStreamChunk{
				Response: chatResp.Message.Content,
				Done:     chatResp.Done,
			}
			select {
			case <-ctx.Done():
				return
			case chunks <- chunk:
			}
			if chatResp.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("stream read failed: %w", err)
		}
	}()

	return chunks, errs, nil
}

// Version returns the wrapped model name.
func (c *ChatClient) Version() string {
	return c.Model
}

func (c *ChatClient) do(ctx context.Context, messages []domain.Message, maxTokens int, stream bool) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to acquire inference slot: %w", err)
		}
	}

	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	reqBody := chatRequest{
		Model:     c.Model,
		Messages:  msgs,
		Stream:    stream,
		KeepAlive: keepAliveSeconds,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}
	if maxTokens > 0 {
		reqBody.Options["num_predict"] = maxTokens
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.logger.Warn("inference_rate_limited",
			slog.Int("status_code", resp.StatusCode),
			slog.String("model", c.Model))
		return nil, &domain.RateLimitError{
			StatusCode: resp.StatusCode,
			Detail:     truncateString(string(body), 200),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	return resp, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ domain.LLMClient = (*ChatClient)(nil)
