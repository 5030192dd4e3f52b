package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/usecase/retrieval"
)

// AnswerInput encapsulates the parameters that drive one answer request.
type AnswerInput struct {
	Query        string
	DocumentRefs []string
	Locale       string
	MaxTokens    int
}

// AnswerOutput is the normalized answer returned to API clients.
type AnswerOutput struct {
	Answer    string
	Citations []CitationEntry
	Sources   []string
	RequestID string
}

// AnswerUsecase defines the contract for generating grounded answers.
type AnswerUsecase interface {
	Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error)
	Stream(ctx context.Context, input AnswerInput) <-chan StreamEvent
}

type StreamEventKind string

const (
	StreamEventKindMeta  StreamEventKind = "meta"
	StreamEventKindDelta StreamEventKind = "delta"
	StreamEventKindDone  StreamEventKind = "done"
	StreamEventKindError StreamEventKind = "error"
)

type StreamEvent struct {
	Kind    StreamEventKind
	Payload interface{}
}

// StreamMeta is the first event of a stream: the evidence the answer
// will be grounded on.
type StreamMeta struct {
	RequestID string
	Sources   []string
	Citations []CitationEntry
}

type answerUsecase struct {
	expander      *retrieval.Expander
	router        *retrieval.Router
	fetcher       *retrieval.Fetcher
	webSearch     domain.WebSearchClient
	reranker      *retrieval.Reranker
	assembler     *ContextAssembler
	promptBuilder PromptBuilder
	postProcessor AnswerPostProcessor
	llm           domain.LLMClient
	cache         *expirable.LRU[string, AnswerOutput]
	cfg           PipelineConfig
	logger        *slog.Logger
}

// NewAnswerUsecase wires together the answer pipeline. cacheSize <= 0
// disables the answer cache.
func NewAnswerUsecase(
	expander *retrieval.Expander,
	router *retrieval.Router,
	fetcher *retrieval.Fetcher,
	webSearch domain.WebSearchClient,
	reranker *retrieval.Reranker,
	assembler *ContextAssembler,
	promptBuilder PromptBuilder,
	llm domain.LLMClient,
	cfg PipelineConfig,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) AnswerUsecase {
	var cache *expirable.LRU[string, AnswerOutput]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, AnswerOutput](cacheSize, nil, cacheTTL)
	}
	return &answerUsecase{
		expander:      expander,
		router:        router,
		fetcher:       fetcher,
		webSearch:     webSearch,
		reranker:      reranker,
		assembler:     assembler,
		promptBuilder: promptBuilder,
		postProcessor: NewAnswerPostProcessor(),
		llm:           llm,
		cache:         cache,
		cfg:           cfg,
		logger:        logger,
	}
}

// pipelineResult carries the evidence side of a request up to the
// generation call. terminalAnswer short-circuits generation entirely.
type pipelineResult struct {
	requestID      string
	locale         string
	assembled      AssembledContext
	messages       []domain.Message
	sources        []string
	terminalAnswer string
}

func (u *answerUsecase) Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	cacheKey := answerCacheKey(input)
	if u.cache != nil {
		if cached, ok := u.cache.Get(cacheKey); ok {
			u.logger.Info("answer_cache_hit", slog.String("request_id", cached.RequestID))
			return &cached, nil
		}
	}

	result, err := u.retrieveAndAssemble(ctx, input)
	if err != nil {
		return nil, err
	}
	if result.terminalAnswer != "" {
		return &AnswerOutput{
			Answer:    result.terminalAnswer,
			Citations: nil,
			Sources:   result.sources,
			RequestID: result.requestID,
		}, nil
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = u.cfg.MaxOutputTokens
	}

	raw, err := generateWithRetry(ctx, u.llm, result.messages, maxTokens, u.cfg.MaxGenerateAttempts, u.logger)
	if err != nil {
		if domain.IsRateLimit(err) {
			u.logger.Warn("generation_throttled_out",
				slog.String("request_id", result.requestID),
				slog.Int("max_attempts", u.cfg.MaxGenerateAttempts))
			return &AnswerOutput{
				Answer:    ServiceBusyAnswer(result.locale),
				Sources:   result.sources,
				RequestID: result.requestID,
			}, nil
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	answer, used := u.postProcessor.Process(raw, result.assembled.Citations)
	answer = u.postProcessor.AppendReferences(answer, used, result.locale)

	output := &AnswerOutput{
		Answer:    answer,
		Citations: used,
		Sources:   result.sources,
		RequestID: result.requestID,
	}
	if u.cache != nil {
		u.cache.Add(cacheKey, *output)
	}

	u.logger.Info("answer_completed",
		slog.String("request_id", result.requestID),
		slog.Int("citation_count", len(used)),
		slog.Int("answer_length", len(answer)))
	return output, nil
}

// retrieveAndAssemble runs the evidence side of the pipeline: expand and
// route in parallel with the internal fetch, gate web search, rerank,
// apply the one-shot low-relevance fallback, and size the context
// window.
func (u *answerUsecase) retrieveAndAssemble(ctx context.Context, input AnswerInput) (*pipelineResult, error) {
	result := &pipelineResult{
		requestID: uuid.NewString(),
		locale:    u.locale(input.Locale),
	}

	var (
		queries     []string
		wantsWeb    bool
		internal    []domain.Fragment
		sourceNames []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queries = u.expander.Expand(gctx, input.Query)
		return nil
	})
	g.Go(func() error {
		wantsWeb = u.router.Decide(gctx, input.Query)
		return nil
	})
	g.Go(func() error {
		var err error
		internal, sourceNames, err = u.fetcher.Fetch(gctx, input.DocumentRefs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	enrichedQuery := strings.Join(queries, " ")
	result.sources = sourceNames

	// Sufficiency gate. Zero internal evidence always forces a search;
	// otherwise an affirmative routing decision can be downgraded when
	// enough internal fragments already carry query terms.
	doWeb := wantsWeb
	if len(internal) == 0 {
		doWeb = true
	} else if wantsWeb && u.cfg.MinKeywordHits > 0 &&
		u.keywordHits(input.Query, internal) >= u.cfg.MinKeywordHits {
		u.logger.Info("web_search_skipped_sufficient_internal",
			slog.String("request_id", result.requestID),
			slog.Int("internal_count", len(internal)))
		doWeb = false
	}

	pool := internal
	webSearched := false
	if doWeb {
		webFrags := u.searchWeb(ctx, input.Query, result.requestID)
		webSearched = true
		pool = append(pool, webFrags...)
		for _, frag := range webFrags {
			result.sources = append(result.sources, frag.Metadata.Source)
		}
	}

	if len(pool) == 0 {
		u.logger.Info("answer_no_evidence", slog.String("request_id", result.requestID))
		result.terminalAnswer = NoEvidenceAnswer(result.locale)
		return result, nil
	}

	ranked := u.reranker.Rank(ctx, enrichedQuery, pool)

	// Low-relevance fallback: evidence existed but none of it matched
	// well. One extra web round, at most once per request.
	if !webSearched && (len(ranked) == 0 || ranked[0].Score() < u.cfg.LowRelevanceThreshold) {
		u.logger.Info("low_relevance_web_fallback",
			slog.String("request_id", result.requestID),
			slog.Float64("top_score", topScore(ranked)))
		webFrags := u.searchWeb(ctx, input.Query, result.requestID)
		if len(webFrags) > 0 {
			pool = append(pool, webFrags...)
			for _, frag := range webFrags {
				result.sources = append(result.sources, frag.Metadata.Source)
			}
			ranked = u.reranker.Rank(ctx, enrichedQuery, pool)
		}
	}

	if len(ranked) == 0 {
		result.terminalAnswer = NoEvidenceAnswer(result.locale)
		return result, nil
	}

	result.assembled = u.assembler.Assemble(input.Query, ranked)

	messages, err := u.promptBuilder.Build(PromptInput{
		Query:   input.Query,
		Locale:  result.locale,
		Context: result.assembled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}
	result.messages = messages

	u.logger.Info("context_assembled",
		slog.String("request_id", result.requestID),
		slog.Int("pool_size", len(pool)),
		slog.Int("window_size", len(result.assembled.Blocks)),
		slog.Int("citation_count", len(result.assembled.Citations)),
		slog.Bool("web_searched", webSearched))
	return result, nil
}

// searchWeb runs web search with the original query. A disabled client
// and all provider failures degrade to no added evidence.
func (u *answerUsecase) searchWeb(ctx context.Context, query, requestID string) []domain.Fragment {
	if !u.webSearch.Enabled() {
		u.logger.Info("web_search_unavailable", slog.String("request_id", requestID))
		return nil
	}
	frags, err := u.webSearch.Search(ctx, query)
	if err != nil {
		u.logger.Warn("web_search_degraded",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil
	}
	return frags
}

// keywordHits counts internal fragments containing at least one query
// token.
func (u *answerUsecase) keywordHits(query string, fragments []domain.Fragment) int {
	tokens := u.assembler.tokenizer.Tokens(query)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, frag := range fragments {
		body := strings.ToLower(frag.Text)
		for _, tok := range tokens {
			if strings.Contains(body, tok) {
				hits++
				break
			}
		}
	}
	return hits
}

// generateWithRetry calls the generation model, retrying only on
// rate-limit signals with exponential backoff up to the attempt cap.
// Other errors are terminal.
func generateWithRetry(ctx context.Context, llm domain.LLMClient, messages []domain.Message, maxTokens, maxAttempts int, logger *slog.Logger) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		resp, err := llm.Generate(ctx, messages, maxTokens)
		if err != nil {
			if domain.IsRateLimit(err) {
				logger.Warn("generation_rate_limited", slog.Int("attempt", attempt))
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return "", backoff.Permanent(fmt.Errorf("empty generation response"))
		}
		return resp.Text, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxAttempts)))
}

func (u *answerUsecase) Stream(ctx context.Context, input AnswerInput) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		if strings.TrimSpace(input.Query) == "" {
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Payload: "query is required",
			})
			return
		}

		result, err := u.retrieveAndAssemble(ctx, input)
		if err != nil {
			// Raw provider detail stays in the logs; the client gets
			// the localized failure text.
			u.logger.Error("stream_retrieval_failed", slog.String("error", err.Error()))
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Payload: ConfigErrorAnswer(u.locale(input.Locale)),
			})
			return
		}

		if result.terminalAnswer != "" {
			output := &AnswerOutput{
				Answer:    result.terminalAnswer,
				Sources:   result.sources,
				RequestID: result.requestID,
			}
			if !u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindDelta, Payload: result.terminalAnswer}) {
				return
			}
			u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindDone, Payload: output})
			return
		}

		meta := StreamMeta{
			RequestID: result.requestID,
			Sources:   result.sources,
			Citations: result.assembled.Citations,
		}
		if !u.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindMeta, Payload: meta}) {
			return
		}

		maxTokens := input.MaxTokens
		if maxTokens <= 0 {
			maxTokens = u.cfg.MaxOutputTokens
		}

		chunkCh, errCh, err := u.llm.GenerateStream(ctx, result.messages, maxTokens)
		if err != nil {
			if domain.IsRateLimit(err) {
				u.sendStreamEvent(ctx, events, StreamEvent{
					Kind:    StreamEventKindDelta,
					Payload: ServiceBusyAnswer(result.locale),
				})
				u.sendStreamEvent(ctx, events, StreamEvent{
					Kind: StreamEventKindDone,
					Payload: &AnswerOutput{
						Answer:    ServiceBusyAnswer(result.locale),
						Sources:   result.sources,
						RequestID: result.requestID,
					},
				})
				return
			}
			u.logger.Error("stream_generation_failed",
				slog.String("request_id", result.requestID),
				slog.String("error", err.Error()))
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Payload: ConfigErrorAnswer(result.locale),
			})
			return
		}

		var builder strings.Builder
		chunkStream := chunkCh
		errStream := errCh

		for chunkStream != nil || errStream != nil {
			select {
			case <-ctx.Done():
				u.sendStreamEvent(ctx, events, StreamEvent{
					Kind:    StreamEventKindError,
					Payload: "client disconnected",
				})
				return
			case chunk, ok := <-chunkStream:
				if !ok {
					chunkStream = nil
					continue
				}
				if chunk.Response != "" {
					builder.WriteString(chunk.Response)
					if !u.sendStreamEvent(ctx, events, StreamEvent{
						Kind:    StreamEventKindDelta,
						Payload: chunk.Response,
					}) {
						return
					}
				}
				if chunk.Done {
					chunkStream = nil
				}
			case streamErr, ok := <-errStream:
				if !ok {
					errStream = nil
					continue
				}
				u.logger.Error("stream_generation_failed",
					slog.String("request_id", result.requestID),
					slog.String("error", streamErr.Error()))
				u.sendStreamEvent(ctx, events, StreamEvent{
					Kind:    StreamEventKindError,
					Payload: ConfigErrorAnswer(result.locale),
				})
				return
			}
		}

		answer, used := u.postProcessor.Process(builder.String(), result.assembled.Citations)
		answer = u.postProcessor.AppendReferences(answer, used, result.locale)

		u.sendStreamEvent(ctx, events, StreamEvent{
			Kind: StreamEventKindDone,
			Payload: &AnswerOutput{
				Answer:    answer,
				Citations: used,
				Sources:   result.sources,
				RequestID: result.requestID,
			},
		})
	}()
	return events
}

func (u *answerUsecase) sendStreamEvent(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}

func (u *answerUsecase) locale(requested string) string {
	locale := strings.TrimSpace(requested)
	if locale == "" {
		return u.cfg.DefaultLocale
	}
	return locale
}

func answerCacheKey(input AnswerInput) string {
	return strings.TrimSpace(input.Query) + "|" +
		strings.Join(input.DocumentRefs, ",") + "|" +
		strings.TrimSpace(input.Locale)
}

func topScore(ranked []domain.Fragment) float64 {
	if len(ranked) == 0 {
		return 0
	}
	return ranked[0].Score()
}
