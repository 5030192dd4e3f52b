package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docqa-orchestrator/internal/domain"
)

const maxExpansions = 3

// Expander produces alternative phrasings of the user query through one
// auxiliary LLM call. Expansion is strictly best-effort: every failure
// mode degrades to the original query alone.
type Expander struct {
	llm      domain.LLMClient
	minRunes int
	logger   *slog.Logger
}

// NewExpander creates an expander. Queries shorter than minRunes are
// returned as-is without a model call.
func NewExpander(llm domain.LLMClient, minRunes int, logger *slog.Logger) *Expander {
	return &Expander{
		llm:      llm,
		minRunes: minRunes,
		logger:   logger,
	}
}

// Expand returns the original query first, followed by up to three
// generated variants.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	queries := []string{query}

	if utf8.RuneCountInString(strings.TrimSpace(query)) < e.minRunes {
		return queries
	}

	prompt := fmt.Sprintf(`You are an expert search query generator.
Generate up to %d alternative search phrasings for the user's question,
covering synonyms and decomposed sub-questions. Keep each phrasing in
the same language as the question.
Output ONLY a JSON array of strings.

Question: %s`, maxExpansions, query)

	resp, err := e.llm.Generate(ctx, []domain.Message{{Role: "user", Content: prompt}}, 200)
	if err != nil {
		e.logger.Warn("query_expansion_failed",
			slog.String("query", truncate(query, 100)),
			slog.String("error", err.Error()))
		return queries
	}

	raw, ok := domain.ExtractJSONArray(resp.Text)
	if !ok {
		e.logger.Warn("query_expansion_parse_failed",
			slog.String("query", truncate(query, 100)))
		return queries
	}

	var variants []string
	if err := json.Unmarshal(raw, &variants); err != nil {
		e.logger.Warn("query_expansion_parse_failed",
			slog.String("query", truncate(query, 100)),
			slog.String("error", err.Error()))
		return queries
	}

	added := 0
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" || added >= maxExpansions {
			continue
		}
		queries = append(queries, v)
		added++
	}

	if added > 0 {
		e.logger.Info("query_expanded",
			slog.String("original", truncate(query, 100)),
			slog.Int("variant_count", added))
	}
	return queries
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
