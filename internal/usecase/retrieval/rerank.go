package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"docqa-orchestrator/internal/domain"
)

// RerankerConfig tunes the two-stage reranking path.
type RerankerConfig struct {
	// SmallPoolThreshold is the pool size below which reranking stays
	// purely lexical.
	SmallPoolThreshold int
	// PrefilterLimit bounds how many lexical candidates are forwarded
	// to the model.
	PrefilterLimit int
	// MinScore drops model-scored fragments below this value.
	MinScore float64
	// RecoveryTopN is how many prefiltered fragments survive when the
	// model filter would otherwise empty the pool.
	RecoveryTopN int
}

// Reranker produces a total relevance order over a mixed fragment pool.
// Small pools are ordered lexically; large pools are prefiltered
// lexically and then scored in a single model call.
type Reranker struct {
	scorer *Scorer
	llm    domain.LLMClient
	cfg    RerankerConfig
	logger *slog.Logger
}

// NewReranker wires the lexical scorer and the auxiliary model.
func NewReranker(scorer *Scorer, llm domain.LLMClient, cfg RerankerConfig, logger *slog.Logger) *Reranker {
	return &Reranker{
		scorer: scorer,
		llm:    llm,
		cfg:    cfg,
		logger: logger,
	}
}

// Rank orders fragments by relevance to the query. Model failures never
// eliminate evidence: any reranking problem falls back to the lexical
// order.
func (r *Reranker) Rank(ctx context.Context, query string, fragments []domain.Fragment) []domain.Fragment {
	if len(fragments) == 0 {
		return nil
	}

	if len(fragments) < r.cfg.SmallPoolThreshold {
		ranked := r.scorer.Rank(query, fragments)
		r.logger.Info("rerank_lexical",
			slog.Int("pool_size", len(fragments)),
			slog.Int("ranked_size", len(ranked)))
		return ranked
	}

	prefiltered := r.scorer.Rank(query, fragments)
	if len(prefiltered) > r.cfg.PrefilterLimit {
		prefiltered = prefiltered[:r.cfg.PrefilterLimit]
	}
	if len(prefiltered) == 0 {
		return nil
	}

	reranked, err := r.modelRank(ctx, query, prefiltered)
	if err != nil {
		r.logger.Warn("rerank_model_failed",
			slog.Int("pool_size", len(prefiltered)),
			slog.String("error", err.Error()))
		return prefiltered
	}

	if len(reranked) == 0 {
		// The model scored everything below the cutoff. An empty pool
		// out of a non-empty prefilter means the filter, not the
		// evidence, is at fault.
		n := r.cfg.RecoveryTopN
		if n > len(prefiltered) {
			n = len(prefiltered)
		}
		r.logger.Warn("rerank_pool_recovered",
			slog.Int("prefiltered_size", len(prefiltered)),
			slog.Int("recovered_size", n))
		return prefiltered[:n]
	}

	r.logger.Info("rerank_model_completed",
		slog.Int("pool_size", len(fragments)),
		slog.Int("prefiltered_size", len(prefiltered)),
		slog.Int("ranked_size", len(reranked)))
	return reranked
}

type modelScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (r *Reranker) modelRank(ctx context.Context, query string, fragments []domain.Fragment) ([]domain.Fragment, error) {
	prompt := r.buildPrompt(query, fragments)

	resp, err := r.llm.Generate(ctx, []domain.Message{{Role: "user", Content: prompt}}, 1500)
	if err != nil {
		return nil, fmt.Errorf("rerank call: %w", err)
	}

	raw, ok := domain.ExtractJSONObject(resp.Text)
	if !ok {
		return nil, fmt.Errorf("rerank response contains no JSON object")
	}

	var parsed struct {
		Scores []modelScore `json:"scores"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode rerank scores: %w", err)
	}

	byID := make(map[string]float64, len(parsed.Scores))
	for _, s := range parsed.Scores {
		byID[s.ID] = s.Score
	}

	kept := make([]domain.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		score, ok := byID[frag.ID]
		if !ok || score < r.cfg.MinScore {
			continue
		}
		kept = append(kept, frag.WithScore(score))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score() > kept[j].Score()
	})
	return kept, nil
}

func (r *Reranker) buildPrompt(query string, fragments []domain.Fragment) string {
	var b strings.Builder
	b.WriteString("Score each document fragment for relevance to the question on a 0-10 scale.\n")
	b.WriteString("Respond with ONLY this JSON shape:\n")
	b.WriteString(`{"scores": [{"id": "<fragment id>", "score": <0-10>}]}` + "\n\n")
	b.WriteString("Question: " + query + "\n\n")
	for _, frag := range fragments {
		fmt.Fprintf(&b, "[id: %s] (%s) %s\n", frag.ID, frag.Metadata.Source, truncate(frag.Text, 400))
	}
	return b.String()
}
