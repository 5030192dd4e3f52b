package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/usecase/retrieval"
)

// DraftInput defines the input for drafting a document from internal
// evidence.
type DraftInput struct {
	Topic        string
	DocumentRefs []string
	Locale       string
	MaxTokens    int
}

// DraftOutput is the generated document plus its citation bookkeeping.
type DraftOutput struct {
	Document  string
	Citations []CitationEntry
	Sources   []string
	RequestID string
}

// DraftUsecase defines the contract for generating grounded document
// drafts.
type DraftUsecase interface {
	Execute(ctx context.Context, input DraftInput) (*DraftOutput, error)
}

type draftUsecase struct {
	fetcher       *retrieval.Fetcher
	reranker      *retrieval.Reranker
	assembler     *ContextAssembler
	promptBuilder DraftPromptBuilder
	postProcessor AnswerPostProcessor
	llm           domain.LLMClient
	cfg           PipelineConfig
	logger        *slog.Logger
}

// NewDraftUsecase wires together the draft pipeline. Drafting works
// from the scoped internal documents only; it never reaches out to web
// search.
func NewDraftUsecase(
	fetcher *retrieval.Fetcher,
	reranker *retrieval.Reranker,
	assembler *ContextAssembler,
	promptBuilder DraftPromptBuilder,
	llm domain.LLMClient,
	cfg PipelineConfig,
	logger *slog.Logger,
) DraftUsecase {
	return &draftUsecase{
		fetcher:       fetcher,
		reranker:      reranker,
		assembler:     assembler,
		promptBuilder: promptBuilder,
		postProcessor: NewAnswerPostProcessor(),
		llm:           llm,
		cfg:           cfg,
		logger:        logger,
	}
}

func (u *draftUsecase) Execute(ctx context.Context, input DraftInput) (*DraftOutput, error) {
	if strings.TrimSpace(input.Topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if len(input.DocumentRefs) == 0 {
		return nil, fmt.Errorf("at least one document reference is required")
	}

	requestID := uuid.NewString()
	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = u.cfg.DefaultLocale
	}

	u.logger.Info("draft_started",
		slog.String("request_id", requestID),
		slog.Int("document_count", len(input.DocumentRefs)))

	fragments, sources, err := u.fetcher.Fetch(ctx, input.DocumentRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	if len(fragments) == 0 {
		return &DraftOutput{
			Document:  NoEvidenceAnswer(locale),
			Sources:   sources,
			RequestID: requestID,
		}, nil
	}

	ranked := u.reranker.Rank(ctx, input.Topic, fragments)
	if len(ranked) == 0 {
		return &DraftOutput{
			Document:  NoEvidenceAnswer(locale),
			Sources:   sources,
			RequestID: requestID,
		}, nil
	}

	assembled := u.assembler.Assemble(input.Topic, ranked)

	messages, err := u.promptBuilder.Build(DraftPromptInput{
		Topic:   input.Topic,
		Locale:  locale,
		Context: assembled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = u.cfg.MaxOutputTokens
	}

	raw, err := generateWithRetry(ctx, u.llm, messages, maxTokens, u.cfg.MaxGenerateAttempts, u.logger)
	if err != nil {
		if domain.IsRateLimit(err) {
			return &DraftOutput{
				Document:  ServiceBusyAnswer(locale),
				Sources:   sources,
				RequestID: requestID,
			}, nil
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	document, used := u.postProcessor.Process(raw, assembled.Citations)
	document = u.postProcessor.AppendReferences(document, used, locale)

	u.logger.Info("draft_completed",
		slog.String("request_id", requestID),
		slog.Int("citation_count", len(used)),
		slog.Int("document_length", len(document)))

	return &DraftOutput{
		Document:  document,
		Citations: used,
		Sources:   sources,
		RequestID: requestID,
	}, nil
}
