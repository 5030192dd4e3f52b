package retrieval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	tokenizer, err := NewTokenizer()
	require.NoError(t, err)
	s := NewScorer(tokenizer, 10.0)
	s.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func frag(id, text, docType, heading string) domain.Fragment {
	return domain.Fragment{
		ID:   id,
		Text: text,
		Metadata: domain.FragmentMetadata{
			Source:  id + ".md",
			DocType: docType,
			Heading: heading,
		},
	}
}

func TestScorerDeterminism(t *testing.T) {
	scorer := newTestScorer(t)
	fragments := []domain.Fragment{
		frag("a", "door trim structure and door panel fixing", domain.DocTypeProductPlan, "door design"),
		frag("b", "unrelated engine cooling notes", domain.DocTypeRegulation, ""),
		frag("c", "door handle materials", "", "door"),
	}

	first := scorer.Rank("door trim", fragments)
	for range 5 {
		again := scorer.Rank("door trim", fragments)
		require.Equal(t, len(first), len(again))
		for i := range first {
			assert.Equal(t, first[i].ID, again[i].ID)
			assert.Equal(t, first[i].Score(), again[i].Score())
		}
	}
}

func TestScorerPriorityOrdering(t *testing.T) {
	scorer := newTestScorer(t)
	// Identical except for doc_type.
	fragments := []domain.Fragment{
		frag("reg", "door trim requirement", domain.DocTypeRegulation, ""),
		frag("intent", "door trim requirement", domain.DocTypeDesignIntent, ""),
		frag("plan", "door trim requirement", domain.DocTypeProductPlan, ""),
	}

	ranked := scorer.Rank("door trim", fragments)
	require.Len(t, ranked, 3)
	assert.Equal(t, "intent", ranked[0].ID)
	assert.Equal(t, "plan", ranked[1].ID)
	assert.Equal(t, "reg", ranked[2].ID)
	assert.Greater(t, ranked[0].Score(), ranked[1].Score())
	assert.Greater(t, ranked[1].Score(), ranked[2].Score())
}

func TestScorerHeadingBoostDominance(t *testing.T) {
	scorer := newTestScorer(t)
	fragments := []domain.Fragment{
		frag("body-only", "the seatbelt anchor position", "", ""),
		frag("heading-only", "no matching terms in this text at all", "", "seatbelt layout"),
	}

	ranked := scorer.Rank("seatbelt", fragments)
	require.Len(t, ranked, 2)
	assert.Equal(t, "heading-only", ranked[0].ID)
	assert.Equal(t, 5.0, ranked[0].Score())
	// Body hit scores term frequency plus the full-query substring bonus.
	assert.Equal(t, 4.0, ranked[1].Score())
}

func TestScorerRecencyBoost(t *testing.T) {
	scorer := newTestScorer(t)
	current := frag("current", "crash standard revised in 2026 for side impact", domain.DocTypeRegulation, "")
	old := frag("old", "crash standard revised in 2019 for side impact", domain.DocTypeRegulation, "")

	t.Run("marker query activates bonus", func(t *testing.T) {
		ranked := scorer.Rank("latest crash standard", []domain.Fragment{old, current})
		require.Len(t, ranked, 2)
		assert.Equal(t, "current", ranked[0].ID)
		assert.Equal(t, ranked[1].Score()+5.0, ranked[0].Score())
	})

	t.Run("no marker no bonus", func(t *testing.T) {
		ranked := scorer.Rank("crash standard", []domain.Fragment{old, current})
		require.Len(t, ranked, 2)
		assert.Equal(t, ranked[0].Score(), ranked[1].Score())
	})

	t.Run("japanese marker and era term", func(t *testing.T) {
		era := frag("era", "令和の衝突安全基準の改定について詳述する", domain.DocTypeRegulation, "")
		stale := frag("stale", "平成の衝突安全基準の改定について詳述する", domain.DocTypeRegulation, "")
		ranked := scorer.Rank("最新の衝突安全基準", []domain.Fragment{stale, era})
		require.Len(t, ranked, 2)
		assert.Equal(t, "era", ranked[0].ID)
	})
}

func TestScorerWebSearchBonus(t *testing.T) {
	scorer := newTestScorer(t)
	web := domain.Fragment{
		ID:   "web#0",
		Text: "door trim news",
		Metadata: domain.FragmentMetadata{
			Source:  "Web: door trim news",
			DocType: domain.DocTypeWebSearch,
			URL:     "https://example.com/a",
		},
	}
	internal := frag("internal", "door trim news", "", "")

	ranked := scorer.Rank("door trim", []domain.Fragment{internal, web})
	require.Len(t, ranked, 2)
	assert.Equal(t, "web#0", ranked[0].ID)
	assert.Equal(t, ranked[1].Score()+10.0, ranked[0].Score())
}

func TestScorerFiltersZeroScores(t *testing.T) {
	scorer := newTestScorer(t)
	fragments := []domain.Fragment{
		frag("hit", "door trim notes", "", ""),
		frag("miss", "completely unrelated content", "", ""),
	}

	ranked := scorer.Rank("door trim", fragments)
	require.Len(t, ranked, 1)
	assert.Equal(t, "hit", ranked[0].ID)
}

func TestScorerStableTieOrder(t *testing.T) {
	scorer := newTestScorer(t)
	var fragments []domain.Fragment
	for i := range 5 {
		fragments = append(fragments, frag(fmt.Sprintf("f%d", i), "door trim", "", ""))
	}

	ranked := scorer.Rank("door trim", fragments)
	require.Len(t, ranked, 5)
	for i := range 5 {
		assert.Equal(t, fmt.Sprintf("f%d", i), ranked[i].ID)
	}
}
