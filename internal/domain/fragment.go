package domain

// DocType labels the origin category of a fragment. The vocabulary
// mirrors the ingestion pipeline's classifier output.
const (
	DocTypeDesignIntent        = "past_design_intent"
	DocTypeMerchandisePlan     = "merchandise_plan"
	DocTypeProductPlan         = "product_plan"
	DocTypeRegulation          = "regulation"
	DocTypeCurrentBOM          = "current_bom"
	DocTypeReflexRules         = "reflex_rules"
	DocTypeTechnicalPaper      = "technical_paper"
	DocTypeCompetitorBenchmark = "competitor_benchmark"
	DocTypeWebSearch           = "web_search"
	DocTypeUnknown             = "unknown"
)

// docTypePriority orders document categories by how authoritative they
// are when answering design questions. Earlier entries score higher.
var docTypePriority = []string{
	DocTypeDesignIntent,
	DocTypeMerchandisePlan,
	DocTypeProductPlan,
	DocTypeRegulation,
}

// DocTypePriority returns the position of docType in the fixed priority
// list and whether it has one. Web-search fragments are handled
// separately by the scorer and never appear in this list.
func DocTypePriority(docType string) (int, bool) {
	for i, dt := range docTypePriority {
		if dt == docType {
			return i, true
		}
	}
	return 0, false
}

// DocTypePriorityLen returns the length of the fixed priority list.
func DocTypePriorityLen() int {
	return len(docTypePriority)
}

// FragmentMetadata carries the provenance attached to a fragment by the
// ingestion pipeline or the web search adapter.
type FragmentMetadata struct {
	Source  string   `json:"source"`
	DocType string   `json:"doc_type,omitempty"`
	Heading string   `json:"heading,omitempty"`
	URL     string   `json:"url,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// Fragment is an immutable unit of retrieved text. Ranking never
// mutates a fragment in place; WithScore returns a scored copy.
type Fragment struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Metadata FragmentMetadata `json:"metadata"`
}

// WithScore returns a copy of the fragment with the relevance score set.
func (f Fragment) WithScore(score float64) Fragment {
	f.Metadata.Score = &score
	return f
}

// Score returns the assigned relevance score, or 0 when unscored.
func (f Fragment) Score() float64 {
	if f.Metadata.Score == nil {
		return 0
	}
	return *f.Metadata.Score
}

// Scored reports whether a relevance score has been assigned.
func (f Fragment) Scored() bool {
	return f.Metadata.Score != nil
}

// IsWebSearch reports whether the fragment came from live web search.
func (f Fragment) IsWebSearch() bool {
	return f.Metadata.DocType == DocTypeWebSearch
}
