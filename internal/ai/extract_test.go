package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("fenced block wins over prose", func(t *testing.T) {
		text := "Here you go {not json}\n```json\n{\"a\": [1, 2]}\n```\nbye"
		v, ok := ExtractJSON(text)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, v)
	})

	t.Run("untagged fence", func(t *testing.T) {
		v, ok := ExtractJSON("```\n[1]\n```")
		require.True(t, ok)
		assert.Equal(t, []any{float64(1)}, v)
	})

	t.Run("object span", func(t *testing.T) {
		v, ok := ExtractJSON(`Sure! {"answer": "yes"} Hope it helps.`)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"answer": "yes"}, v)
	})

	t.Run("array span", func(t *testing.T) {
		v, ok := ExtractJSON(`Tasks: ["a", "b"] done`)
		require.True(t, ok)
		assert.Equal(t, []any{"a", "b"}, v)
	})

	t.Run("whole text scalar", func(t *testing.T) {
		v, ok := ExtractJSON(` "plain" `)
		require.True(t, ok)
		assert.Equal(t, "plain", v)
	})

	t.Run("no json", func(t *testing.T) {
		for _, text := range []string{"", "Just keep going!", "{broken", "a } b { c", "[[["} {
			v, ok := ExtractJSON(text)
			assert.False(t, ok, text)
			assert.Nil(t, v)
		}
	})
}

func TestExtractArray(t *testing.T) {
	v, ok := ExtractJSON(`Tasks: [{"description":"x"}] done`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"description": "x"}, v)

	arr, ok := extractArray(`Tasks: [{"description":"x"}] done`)
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"description": "x"}}, arr)

	_, ok = extractArray(`{"description":"x"}`)
	assert.False(t, ok)
}

func TestExtractInto(t *testing.T) {
	var reply chatReply
	require.True(t, ExtractInto(`{"selectedGoalTitle":"Run","answer":"Go"}`, &reply))
	assert.Equal(t, chatReply{SelectedGoalTitle: "Run", Answer: "Go"}, reply)

	var wrong chatReply
	assert.False(t, ExtractInto(`[1,2]`, &wrong))
	assert.False(t, ExtractInto(`nothing`, &wrong))
}
