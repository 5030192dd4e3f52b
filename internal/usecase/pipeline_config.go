package usecase

import (
	"fmt"
)

// RerankingConfig holds settings for the two-stage relevance ranking.
type RerankingConfig struct {
	// SmallPoolThreshold is the pool size below which ranking stays
	// purely lexical (no model call).
	SmallPoolThreshold int
	// PrefilterLimit bounds the candidates forwarded to the model on
	// the large-pool path.
	PrefilterLimit int
	// MinScore drops model-scored fragments below this 0-10 value.
	MinScore float64
	// RecoveryTopN is how many prefiltered fragments survive when the
	// model filter would otherwise empty the pool.
	RecoveryTopN int
	// WebSearchBonus is the flat lexical score granted to web-search
	// fragments in place of a document-type priority slot. Whether web
	// evidence should outrank internal documents is a product policy
	// knob, not a fixed constant.
	WebSearchBonus float64
}

// DefaultRerankingConfig returns the standard ranking thresholds.
func DefaultRerankingConfig() RerankingConfig {
	return RerankingConfig{
		SmallPoolThreshold: 15,
		PrefilterLimit:     40,
		MinScore:           3.0,
		RecoveryTopN:       20,
		WebSearchBonus:     10.0,
	}
}

// Validate checks if the reranking configuration is valid.
func (c RerankingConfig) Validate() error {
	if c.SmallPoolThreshold <= 0 {
		return fmt.Errorf("smallPoolThreshold must be positive, got %d", c.SmallPoolThreshold)
	}
	if c.PrefilterLimit <= 0 {
		return fmt.Errorf("prefilterLimit must be positive, got %d", c.PrefilterLimit)
	}
	if c.MinScore < 0 || c.MinScore > 10 {
		return fmt.Errorf("minScore must be in [0, 10], got %f", c.MinScore)
	}
	if c.RecoveryTopN <= 0 {
		return fmt.Errorf("recoveryTopN must be positive, got %d", c.RecoveryTopN)
	}
	if c.WebSearchBonus < 0 {
		return fmt.Errorf("webSearchBonus must be non-negative, got %f", c.WebSearchBonus)
	}
	return nil
}

// ContextWindowConfig bounds how many fragments reach generation.
// The window scales with query token count so complex questions get
// more evidence than trivial ones.
type ContextWindowConfig struct {
	// MinFragments is the window floor for short queries.
	MinFragments int
	// MaxFragments is the window ceiling for long queries.
	MaxFragments int
}

// DefaultContextWindowConfig returns the standard window bounds.
func DefaultContextWindowConfig() ContextWindowConfig {
	return ContextWindowConfig{
		MinFragments: 5,
		MaxFragments: 10,
	}
}

// Validate checks if the context window configuration is valid.
func (c ContextWindowConfig) Validate() error {
	if c.MinFragments <= 0 {
		return fmt.Errorf("minFragments must be positive, got %d", c.MinFragments)
	}
	if c.MaxFragments < c.MinFragments {
		return fmt.Errorf("maxFragments (%d) must be >= minFragments (%d)", c.MaxFragments, c.MinFragments)
	}
	return nil
}

// PipelineConfig holds the tunable parameters of the answer pipeline.
// The relevance thresholds have no single correct value; they are
// deliberately configuration, not constants.
type PipelineConfig struct {
	// ExpansionMinRunes skips query expansion for queries shorter than
	// this many runes.
	ExpansionMinRunes int

	// MinKeywordHits is the number of internal fragments that must
	// already contain a query term for an affirmative routing decision
	// to be downgraded to "skip web search". Zero disables the check.
	MinKeywordHits int

	// LowRelevanceThreshold triggers the one-shot web-search fallback
	// when the top-ranked fragment scores below it.
	LowRelevanceThreshold float64

	// MaxGenerateAttempts caps generation retries on rate-limit errors.
	MaxGenerateAttempts int

	// MaxOutputTokens bounds the generation call.
	MaxOutputTokens int

	// DefaultLocale is the answer language when the request does not
	// specify one.
	DefaultLocale string

	// Reranking holds the relevance ranking thresholds.
	Reranking RerankingConfig

	// ContextWindow holds the generation window bounds.
	ContextWindow ContextWindowConfig
}

// DefaultPipelineConfig returns the standard pipeline tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ExpansionMinRunes:     8,
		MinKeywordHits:        3,
		LowRelevanceThreshold: 5.0,
		MaxGenerateAttempts:   3,
		MaxOutputTokens:       2048,
		DefaultLocale:         "ja",
		Reranking:             DefaultRerankingConfig(),
		ContextWindow:         DefaultContextWindowConfig(),
	}
}

// Validate checks if the configuration values are within acceptable ranges.
func (c PipelineConfig) Validate() error {
	if c.ExpansionMinRunes < 0 {
		return fmt.Errorf("expansionMinRunes must be non-negative, got %d", c.ExpansionMinRunes)
	}
	if c.MinKeywordHits < 0 {
		return fmt.Errorf("minKeywordHits must be non-negative, got %d", c.MinKeywordHits)
	}
	if c.LowRelevanceThreshold < 0 {
		return fmt.Errorf("lowRelevanceThreshold must be non-negative, got %f", c.LowRelevanceThreshold)
	}
	if c.MaxGenerateAttempts <= 0 {
		return fmt.Errorf("maxGenerateAttempts must be positive, got %d", c.MaxGenerateAttempts)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", c.MaxOutputTokens)
	}
	if c.DefaultLocale == "" {
		return fmt.Errorf("defaultLocale is required")
	}
	if err := c.Reranking.Validate(); err != nil {
		return fmt.Errorf("reranking config invalid: %w", err)
	}
	if err := c.ContextWindow.Validate(); err != nil {
		return fmt.Errorf("context window config invalid: %w", err)
	}
	return nil
}
