package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithScoreReturnsCopy(t *testing.T) {
	original := Fragment{ID: "a#0", Text: "body"}

	scored := original.WithScore(4.5)

	require.True(t, scored.Scored())
	assert.Equal(t, 4.5, scored.Score())
	assert.False(t, original.Scored(), "original fragment must stay unscored")
	assert.Equal(t, 0.0, original.Score())
}

func TestDocTypePriority(t *testing.T) {
	idx, ok := DocTypePriority(DocTypeDesignIntent)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = DocTypePriority(DocTypeRegulation)
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = DocTypePriority(DocTypeWebSearch)
	assert.False(t, ok)

	_, ok = DocTypePriority(DocTypeTechnicalPaper)
	assert.False(t, ok)
}

func TestIsWebSearch(t *testing.T) {
	web := Fragment{Metadata: FragmentMetadata{DocType: DocTypeWebSearch}}
	internal := Fragment{Metadata: FragmentMetadata{DocType: DocTypeRegulation}}

	assert.True(t, web.IsWebSearch())
	assert.False(t, internal.IsWebSearch())
}
