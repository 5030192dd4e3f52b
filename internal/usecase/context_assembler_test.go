package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-orchestrator/internal/domain"
	"docqa-orchestrator/internal/usecase/retrieval"
)

func newTestAssembler(t *testing.T) *ContextAssembler {
	t.Helper()
	tokenizer, err := retrieval.NewTokenizer()
	require.NoError(t, err)
	return NewContextAssembler(tokenizer, ContextWindowConfig{MinFragments: 5, MaxFragments: 10})
}

func scoredFrag(id, source, url string, score float64) domain.Fragment {
	return domain.Fragment{
		ID:   id,
		Text: "body of " + id,
		Metadata: domain.FragmentMetadata{
			Source: source,
			URL:    url,
		},
	}.WithScore(score)
}

func TestAssembleWindowClamping(t *testing.T) {
	assembler := newTestAssembler(t)

	pool := make([]domain.Fragment, 12)
	for i := range pool {
		pool[i] = scoredFrag(string(rune('a'+i)), "doc.md", "", float64(12-i))
	}

	t.Run("short query clamps to minimum", func(t *testing.T) {
		out := assembler.Assemble("trim", pool)
		assert.Len(t, out.Blocks, 5)
	})

	t.Run("long query clamps to maximum", func(t *testing.T) {
		query := strings.Repeat("door trim material cost weight ", 4)
		out := assembler.Assemble(query, pool)
		assert.Len(t, out.Blocks, 10)
	})

	t.Run("window never exceeds the pool", func(t *testing.T) {
		out := assembler.Assemble("trim", pool[:2])
		assert.Len(t, out.Blocks, 2)
	})
}

func TestAssembleCitationNumbering(t *testing.T) {
	assembler := newTestAssembler(t)

	out := assembler.Assemble("door trim design intent", []domain.Fragment{
		scoredFrag("a1", "trim_plan.md", "", 9),
		scoredFrag("b1", "crash_reg.md", "", 8),
		scoredFrag("a2", "docs/TRIM_PLAN.md", "", 7), // same base file, other path and case
		scoredFrag("w1", "example.com", "https://example.com/safety", 6),
	})

	require.Len(t, out.Blocks, 4)
	assert.Equal(t, 1, out.Blocks[0].Citation)
	assert.Equal(t, 2, out.Blocks[1].Citation)
	assert.Equal(t, 1, out.Blocks[2].Citation, "same source shares the first number")
	assert.Equal(t, 3, out.Blocks[3].Citation)

	require.Len(t, out.Citations, 3)
	assert.Equal(t, "trim_plan.md", out.Citations[0].DisplayName)
	assert.Equal(t, "crash_reg.md", out.Citations[1].DisplayName)
	assert.Equal(t, "https://example.com/safety", out.Citations[2].URL)
}

func TestAssembleDistinctURLsStayDistinct(t *testing.T) {
	assembler := newTestAssembler(t)

	out := assembler.Assemble("latest crash safety standard", []domain.Fragment{
		scoredFrag("w1", "example.com", "https://example.com/a", 9),
		scoredFrag("w2", "example.com", "https://example.com/b", 8),
	})

	require.Len(t, out.Citations, 2)
	assert.Equal(t, 1, out.Blocks[0].Citation)
	assert.Equal(t, 2, out.Blocks[1].Citation)
}
