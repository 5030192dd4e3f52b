package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensLatin(t *testing.T) {
	tokenizer, err := NewTokenizer()
	require.NoError(t, err)

	tokens := tokenizer.Tokens("Door-Trim quality, 55mm clearance!")

	assert.Contains(t, tokens, "door")
	assert.Contains(t, tokens, "trim")
	assert.Contains(t, tokens, "quality")
	assert.Contains(t, tokens, "55mm")
	assert.NotContains(t, tokens, ",")
}

func TestTokensJapanese(t *testing.T) {
	tokenizer, err := NewTokenizer()
	require.NoError(t, err)

	tokens := tokenizer.Tokens("ドアトリムの衝突安全基準")

	assert.Contains(t, tokens, "衝突")
	assert.Contains(t, tokens, "基準")
	assert.NotContains(t, tokens, "の", "single-rune particles are dropped")
}

func TestTokensEmpty(t *testing.T) {
	tokenizer, err := NewTokenizer()
	require.NoError(t, err)

	assert.Empty(t, tokenizer.Tokens("   "))
}
