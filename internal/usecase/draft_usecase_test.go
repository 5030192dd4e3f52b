package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/usecase/retrieval"
)

func newTestDraftUsecase(t *testing.T, stubs *pipelineStubs) DraftUsecase {
	t.Helper()
	logger := slog.Default()
	tokenizer, err := retrieval.NewTokenizer()
	require.NoError(t, err)

	cfg := DefaultPipelineConfig()
	scorer := retrieval.NewScorer(tokenizer, cfg.Reranking.WebSearchBonus)
	reranker := retrieval.NewReranker(scorer, stubs.aux, retrieval.RerankerConfig{
		SmallPoolThreshold: cfg.Reranking.SmallPoolThreshold,
		PrefilterLimit:     cfg.Reranking.PrefilterLimit,
		MinScore:           cfg.Reranking.MinScore,
		RecoveryTopN:       cfg.Reranking.RecoveryTopN,
	}, logger)

	return NewDraftUsecase(
		retrieval.NewFetcher(stubs.store, logger),
		reranker,
		NewContextAssembler(tokenizer, cfg.ContextWindow),
		NewDraftPromptBuilder(),
		stubs.gen,
		cfg,
		logger,
	)
}

func TestDraftRequiresTopicAndDocuments(t *testing.T) {
	usecase := newTestDraftUsecase(t, newPipelineStubs())

	_, err := usecase.Execute(context.Background(), DraftInput{DocumentRefs: []string{"public/a.md"}})
	assert.Error(t, err)

	_, err = usecase.Execute(context.Background(), DraftInput{Topic: "door trim quality plan"})
	assert.Error(t, err, "drafting is grounded on scoped documents only")
}

func TestDraftNoEvidenceDocument(t *testing.T) {
	stubs := newPipelineStubs()
	usecase := newTestDraftUsecase(t, stubs)

	out, err := usecase.Execute(context.Background(), DraftInput{
		Topic:        "door trim quality plan",
		DocumentRefs: []string{"public/missing.md"},
	})

	require.NoError(t, err)
	assert.Equal(t, NoEvidenceAnswer("ja"), out.Document)
	assert.Zero(t, stubs.gen.callCount())
}

func TestDraftGeneratesCitedDocument(t *testing.T) {
	stubs := newPipelineStubs()
	stubs.gen = &stubLLM{responses: []string{
		"## 概要\nトリム品質目標の再整理 [1]。\n\n## 重要ポイント\n- 表皮シボの統一 [1]\n\n## リスク・留意点\n- 現時点で特記なし",
	}}
	stubs.addDocument(t, "public/trim_plan.md",
		internalFrag("trim_001", "trim_plan.md", "door trim door trim quality gates", domain.DocTypeProductPlan))
	usecase := newTestDraftUsecase(t, stubs)

	out, err := usecase.Execute(context.Background(), DraftInput{
		Topic:        "door trim quality plan",
		DocumentRefs: []string{"public/trim_plan.md"},
	})

	require.NoError(t, err)
	assert.Contains(t, out.Document, "## 概要")
	assert.Contains(t, out.Document, "### 参照資料")
	require.Len(t, out.Citations, 1)
	assert.Equal(t, []string{"trim_plan"}, out.Sources)
	assert.NotEmpty(t, out.RequestID)
}

func TestDraftRateLimitExhaustion(t *testing.T) {
	stubs := newPipelineStubs()
	stubs.gen = &stubLLM{err: &domain.RateLimitError{StatusCode: 429, Detail: "slow down"}}
	stubs.addDocument(t, "public/trim_plan.md",
		internalFrag("trim_001", "trim_plan.md", "door trim door trim quality gates", domain.DocTypeProductPlan))
	usecase := newTestDraftUsecase(t, stubs)

	out, err := usecase.Execute(context.Background(), DraftInput{
		Topic:        "door trim quality plan",
		DocumentRefs: []string{"public/trim_plan.md"},
	})

	require.NoError(t, err)
	assert.Equal(t, ServiceBusyAnswer("ja"), out.Document)
	assert.Equal(t, 3, stubs.gen.callCount())
}
