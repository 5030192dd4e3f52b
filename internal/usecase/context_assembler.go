package usecase

import (
	"path"
	"strings"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/usecase/retrieval"
)

// CitationEntry ties a citation number to the source it resolves to.
type CitationEntry struct {
	Number      int
	DisplayName string
	URL         string
}

// ContextBlock is one numbered evidence block handed to the prompt
// builder. Fragments citing the same underlying source share a
// citation number.
type ContextBlock struct {
	Citation int
	Source   string
	Heading  string
	Score    float64
	Text     string
}

// AssembledContext is the windowed, citation-numbered evidence for one
// generation call.
type AssembledContext struct {
	Blocks    []ContextBlock
	Citations []CitationEntry
}

// ContextAssembler selects the generation window from a ranked pool and
// assigns citation numbers.
type ContextAssembler struct {
	tokenizer *retrieval.Tokenizer
	cfg       ContextWindowConfig
}

// NewContextAssembler creates an assembler with the given window bounds.
func NewContextAssembler(tokenizer *retrieval.Tokenizer, cfg ContextWindowConfig) *ContextAssembler {
	return &ContextAssembler{tokenizer: tokenizer, cfg: cfg}
}

// Assemble takes the ranked pool, trims it to a window sized by the
// query's token count, and numbers the survivors. Citation numbers
// follow first appearance; two fragments from the same source (same
// base file name or same URL) share one number.
func (a *ContextAssembler) Assemble(query string, ranked []domain.Fragment) AssembledContext {
	window := a.windowSize(query)
	if len(ranked) > window {
		ranked = ranked[:window]
	}

	var out AssembledContext
	numberBySource := make(map[string]int, len(ranked))

	for _, frag := range ranked {
		key := sourceKey(frag)
		number, seen := numberBySource[key]
		if !seen {
			number = len(out.Citations) + 1
			numberBySource[key] = number
			out.Citations = append(out.Citations, CitationEntry{
				Number:      number,
				DisplayName: frag.Metadata.Source,
				URL:         frag.Metadata.URL,
			})
		}
		out.Blocks = append(out.Blocks, ContextBlock{
			Citation: number,
			Source:   frag.Metadata.Source,
			Heading:  frag.Metadata.Heading,
			Score:    frag.Score(),
			Text:     frag.Text,
		})
	}
	return out
}

// windowSize scales the fragment window with query complexity, using
// token count as the proxy, clamped to the configured bounds.
func (a *ContextAssembler) windowSize(query string) int {
	n := len(a.tokenizer.Tokens(query))
	if n < a.cfg.MinFragments {
		return a.cfg.MinFragments
	}
	if n > a.cfg.MaxFragments {
		return a.cfg.MaxFragments
	}
	return n
}

// sourceKey collapses fragments of the same underlying source onto one
// citation identity: the URL for web results, otherwise the base file
// name with path and extension stripped.
func sourceKey(frag domain.Fragment) string {
	if frag.Metadata.URL != "" {
		return frag.Metadata.URL
	}
	base := path.Base(strings.ReplaceAll(frag.Metadata.Source, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ToLower(base)
}
