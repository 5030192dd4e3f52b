package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		raw, ok := ExtractJSONObject(`{"search": true}`)
		require.True(t, ok)
		assert.JSONEq(t, `{"search": true}`, string(raw))
	})

	t.Run("object wrapped in prose", func(t *testing.T) {
		raw, ok := ExtractJSONObject("Sure, here is the result:\n```json\n{\"search\": false}\n```\nLet me know.")
		require.True(t, ok)
		assert.JSONEq(t, `{"search": false}`, string(raw))
	})

	t.Run("nested braces and strings", func(t *testing.T) {
		input := `prefix {"scores": [{"id": "a{b}", "score": 7}]} suffix`
		raw, ok := ExtractJSONObject(input)
		require.True(t, ok)
		assert.JSONEq(t, `{"scores": [{"id": "a{b}", "score": 7}]}`, string(raw))
	})

	t.Run("escaped quote inside string", func(t *testing.T) {
		raw, ok := ExtractJSONObject(`{"text": "he said \"hi\" {not a brace}"}`)
		require.True(t, ok)
		assert.Contains(t, string(raw), `\"hi\"`)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := ExtractJSONObject("the model refused to answer")
		assert.False(t, ok)
	})

	t.Run("unbalanced object", func(t *testing.T) {
		_, ok := ExtractJSONObject(`{"search": true`)
		assert.False(t, ok)
	})

	t.Run("invalid candidate then valid object", func(t *testing.T) {
		raw, ok := ExtractJSONObject(`{bad json} {"ok": 1}`)
		require.True(t, ok)
		assert.JSONEq(t, `{"ok": 1}`, string(raw))
	})
}

func TestExtractJSONArray(t *testing.T) {
	t.Run("array in prose", func(t *testing.T) {
		raw, ok := ExtractJSONArray(`Here you go: ["alpha", "beta"]`)
		require.True(t, ok)
		assert.JSONEq(t, `["alpha", "beta"]`, string(raw))
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := ExtractJSONArray("")
		assert.False(t, ok)
	})
}
