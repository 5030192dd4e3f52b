package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"docqa-orchestrator/internal/domain"
)

// Trigger vocabularies for the rule layer. Any hit forces a web search
// without consulting the model.
var (
	recencyTriggerTerms = []string{
		"latest", "newest", "recent", "current",
		"最新", "直近", "今年", "来年", "現行",
	}
	marketTriggerTerms = []string{
		"market", "competitor", "benchmark", "share",
		"市場", "競合", "他社", "シェア", "ベンチマーク",
	}
	regulationTriggerTerms = []string{
		"regulation", "compliance", "standard", "ncap", "un-r",
		"法規", "規制", "基準", "法令", "認証",
	}
)

// Router decides whether a query needs live web evidence. The decision
// is advisory: the orchestrator may still force or skip a web search
// based on what internal retrieval actually produced.
type Router struct {
	llm    domain.LLMClient
	logger *slog.Logger
	now    func() time.Time
}

// NewRouter creates a search router backed by the auxiliary model.
func NewRouter(llm domain.LLMClient, logger *slog.Logger) *Router {
	return &Router{
		llm:    llm,
		logger: logger,
		now:    time.Now,
	}
}

// Decide returns true when the query warrants external web search.
// Classification failures default to false: an ambiguous failure never
// forces an external call.
func (r *Router) Decide(ctx context.Context, query string) bool {
	if reason, hit := r.matchRules(query); hit {
		r.logger.Info("search_routing_rule_hit",
			slog.String("query", truncate(query, 100)),
			slog.String("rule", reason))
		return true
	}

	prompt := fmt.Sprintf(`Decide whether answering the question below requires searching the public web,
as opposed to internal project documents alone. Respond with ONLY this JSON:
{"search": true} or {"search": false}

Question: %s`, query)

	resp, err := r.llm.Generate(ctx, []domain.Message{{Role: "user", Content: prompt}}, 50)
	if err != nil {
		r.logger.Warn("search_routing_failed",
			slog.String("query", truncate(query, 100)),
			slog.String("error", err.Error()))
		return false
	}

	raw, ok := domain.ExtractJSONObject(resp.Text)
	if !ok {
		r.logger.Warn("search_routing_parse_failed", slog.String("query", truncate(query, 100)))
		return false
	}

	var decision struct {
		Search bool `json:"search"`
	}
	if err := json.Unmarshal(raw, &decision); err != nil {
		r.logger.Warn("search_routing_parse_failed",
			slog.String("query", truncate(query, 100)),
			slog.String("error", err.Error()))
		return false
	}

	r.logger.Info("search_routing_classified",
		slog.String("query", truncate(query, 100)),
		slog.Bool("search", decision.Search))
	return decision.Search
}

func (r *Router) matchRules(query string) (string, bool) {
	lower := strings.ToLower(query)

	for _, term := range recencyTriggerTerms {
		if strings.Contains(lower, term) {
			return "recency", true
		}
	}

	// Explicit mention of the current or a near-future year also counts
	// as a recency signal.
	year := r.now().Year()
	for y := year; y <= year+2; y++ {
		if strings.Contains(lower, strconv.Itoa(y)) {
			return "recency", true
		}
	}

	for _, term := range marketTriggerTerms {
		if strings.Contains(lower, term) {
			return "market", true
		}
	}
	for _, term := range regulationTriggerTerms {
		if strings.Contains(lower, term) {
			return "regulation", true
		}
	}
	return "", false
}
