package retrieval

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"docqa-orchestrator/internal/domain"
)

const (
	bodyHitWeight      = 1.0
	headingHitWeight   = 5.0
	substringBonus     = 3.0
	docTypeWeight      = 2.0
	recencyBonus       = 5.0
)

var recencyMarkers = []string{
	"latest", "recent", "newest",
	"最新", "直近", "今年", "現行",
}

// Scorer ranks fragments lexically against a query. Scoring is a pure
// function of (query, fragments, clock year): repeated calls produce
// identical scores and order.
type Scorer struct {
	tokenizer      *Tokenizer
	webSearchBonus float64
	now            func() time.Time
}

// NewScorer creates a lexical scorer. webSearchBonus is the flat score
// applied to web-search fragments in place of a document-type priority
// slot.
func NewScorer(tokenizer *Tokenizer, webSearchBonus float64) *Scorer {
	return &Scorer{
		tokenizer:      tokenizer,
		webSearchBonus: webSearchBonus,
		now:            time.Now,
	}
}

// Rank scores every fragment against the query and returns the scored
// survivors in descending score order. Fragments scoring zero or below
// are dropped. Ties keep the input order.
func (s *Scorer) Rank(query string, fragments []domain.Fragment) []domain.Fragment {
	tokens := s.tokenizer.Tokens(query)
	queryLower := strings.ToLower(query)
	wantRecent := containsRecencyMarker(queryLower)
	eraTerms := s.eraTerms()

	scored := make([]domain.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		score := s.score(frag, tokens, queryLower, wantRecent, eraTerms)
		if score <= 0 {
			continue
		}
		scored = append(scored, frag.WithScore(score))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})
	return scored
}

func (s *Scorer) score(frag domain.Fragment, tokens []string, queryLower string, wantRecent bool, eraTerms []string) float64 {
	body := strings.ToLower(frag.Text)
	heading := strings.ToLower(frag.Metadata.Heading)

	var score float64
	for _, tok := range tokens {
		score += float64(strings.Count(body, tok)) * bodyHitWeight
		if heading != "" {
			score += float64(strings.Count(heading, tok)) * headingHitWeight
		}
	}

	if queryLower != "" && strings.Contains(body, queryLower) {
		score += substringBonus
	}

	if frag.IsWebSearch() {
		score += s.webSearchBonus
	} else if idx, ok := domain.DocTypePriority(frag.Metadata.DocType); ok {
		score += float64(domain.DocTypePriorityLen()-idx) * docTypeWeight
	}

	if wantRecent {
		for _, term := range eraTerms {
			if strings.Contains(body, term) || strings.Contains(heading, term) {
				score += recencyBonus
				break
			}
		}
	}
	return score
}

// eraTerms returns the strings whose presence marks a fragment as
// current: this year, next year, and the local era name.
func (s *Scorer) eraTerms() []string {
	year := s.now().Year()
	return []string{
		strconv.Itoa(year),
		strconv.Itoa(year + 1),
		"令和",
	}
}

func containsRecencyMarker(queryLower string) bool {
	for _, m := range recencyMarkers {
		if strings.Contains(queryLower, m) {
			return true
		}
	}
	return false
}
