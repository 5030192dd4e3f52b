package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"docqa-orchestrator/internal/adapter/chunkstore"
	"docqa-orchestrator/internal/adapter/inference"
	"docqa-orchestrator/internal/adapter/websearch"
	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/infra/config"
	"docqa-orchestrator/internal/infra/httpclient"
	"docqa-orchestrator/internal/usecase"
	"docqa-orchestrator/internal/usecase/retrieval"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	AnswerUsecase usecase.AnswerUsecase
	DraftUsecase  usecase.DraftUsecase

	BlobStore domain.BlobStore
	WebSearch domain.WebSearchClient

	httpPool    *httpclient.Pool
	redisClient *redis.Client
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	pipelineCfg := pipelineConfigFrom(cfg)
	if err := pipelineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	// Per-service HTTP clients over one shared connection pool
	httpPool := httpclient.NewPool(httpclient.Timeouts{
		Blob:      time.Duration(cfg.Blob.Timeout) * time.Second,
		Search:    time.Duration(cfg.WebSearch.Timeout) * time.Second,
		Inference: time.Duration(cfg.LLM.Timeout) * time.Second,
	})

	// Chunk store, optionally fronted by Redis
	var blobStore domain.BlobStore = chunkstore.NewBlobGatewayClient(
		cfg.Blob.GatewayURL,
		time.Duration(cfg.Blob.Timeout)*time.Second,
		log,
		httpPool.Blob(),
	)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		blobStore = chunkstore.NewCachedBlobStore(
			blobStore,
			redisClient,
			time.Duration(cfg.Redis.TTLMinutes)*time.Minute,
			log,
		)
		log.Info("chunk_cache_enabled", slog.String("addr", cfg.Redis.Addr))
	}

	webSearch := websearch.NewTavilyClient(
		cfg.WebSearch.BaseURL,
		cfg.WebSearch.APIKey,
		cfg.WebSearch.MaxResults,
		cfg.WebSearch.SearchDepth,
		cfg.WebSearch.ExcludedDomains,
		time.Duration(cfg.WebSearch.Timeout)*time.Second,
		cfg.WebSearch.RequestsPerSecond,
		log,
		httpPool.Search(),
	)

	// Generation and auxiliary models share one provider quota.
	limiter := inference.NewSharedLimiter(cfg.LLM.RequestsPerSecond)
	generator := inference.NewChatClient(
		cfg.LLM.URL, cfg.LLM.Model,
		time.Duration(cfg.LLM.Timeout)*time.Second,
		limiter, log, httpPool.Inference(),
	)
	auxModel := cfg.LLM.AuxModel
	if auxModel == "" {
		auxModel = cfg.LLM.Model
	}
	auxClient := inference.NewChatClient(
		cfg.LLM.URL, auxModel,
		time.Duration(cfg.LLM.Timeout)*time.Second,
		limiter, log, httpPool.Inference(),
	)

	tokenizer, err := retrieval.NewTokenizer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	scorer := retrieval.NewScorer(tokenizer, pipelineCfg.Reranking.WebSearchBonus)
	reranker := retrieval.NewReranker(scorer, auxClient, retrieval.RerankerConfig{
		SmallPoolThreshold: pipelineCfg.Reranking.SmallPoolThreshold,
		PrefilterLimit:     pipelineCfg.Reranking.PrefilterLimit,
		MinScore:           pipelineCfg.Reranking.MinScore,
		RecoveryTopN:       pipelineCfg.Reranking.RecoveryTopN,
	}, log)

	expander := retrieval.NewExpander(auxClient, pipelineCfg.ExpansionMinRunes, log)
	router := retrieval.NewRouter(auxClient, log)
	fetcher := retrieval.NewFetcher(blobStore, log)
	assembler := usecase.NewContextAssembler(tokenizer, pipelineCfg.ContextWindow)

	answerUsecase := usecase.NewAnswerUsecase(
		expander, router, fetcher, webSearch, reranker, assembler,
		usecase.NewXMLPromptBuilder(),
		generator,
		pipelineCfg,
		cfg.Cache.Size,
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		log,
	)

	draftUsecase := usecase.NewDraftUsecase(
		fetcher, reranker, assembler,
		usecase.NewDraftPromptBuilder(),
		generator,
		pipelineCfg,
		log,
	)

	return &ApplicationComponents{
		AnswerUsecase: answerUsecase,
		DraftUsecase:  draftUsecase,
		BlobStore:     blobStore,
		WebSearch:     webSearch,
		httpPool:      httpPool,
		redisClient:   redisClient,
	}, nil
}

// Close releases the long-lived connections held by the container.
func (c *ApplicationComponents) Close() error {
	if c.httpPool != nil {
		c.httpPool.CloseIdle()
	}
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func pipelineConfigFrom(cfg *config.Config) usecase.PipelineConfig {
	pc := usecase.DefaultPipelineConfig()
	pc.ExpansionMinRunes = cfg.ExpansionMinRunes
	pc.MinKeywordHits = cfg.MinKeywordHits
	pc.LowRelevanceThreshold = cfg.LowRelevanceThreshold
	pc.MaxGenerateAttempts = cfg.MaxGenerateAttempts
	pc.MaxOutputTokens = cfg.LLM.MaxOutputTokens
	pc.DefaultLocale = cfg.DefaultLocale
	pc.Reranking = usecase.RerankingConfig{
		SmallPoolThreshold: cfg.SmallPoolThreshold,
		PrefilterLimit:     cfg.PrefilterLimit,
		MinScore:           cfg.MinRerankScore,
		RecoveryTopN:       cfg.RecoveryTopN,
		WebSearchBonus:     cfg.WebSearchBonus,
	}
	pc.ContextWindow = usecase.ContextWindowConfig{
		MinFragments: cfg.ContextMinFragments,
		MaxFragments: cfg.ContextMaxFragments,
	}
	return pc
}
