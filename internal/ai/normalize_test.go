package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**Great job!**", "Great job!"},
		{"italic and code", "use *this* and `that`", "use this and that"},
		{"underscore", "_quiet_ words", "quiet words"},
		{"heading", "## Plan\nstep", "Plan\nstep"},
		{"bullets", "- one\n* two\n• three", "one\ntwo\nthree"},
		{"numbered", "1) first\n2. second", "first\nsecond"},
		{"fence dropped", "before\n```json\n{\"a\":1}\n```\nafter", "before\n\nafter"},
		{"newline runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"trailing spaces", "a   \nb\t", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"**bold *nested* text**",
		"- * item",
		"1. 2) nested numbering",
		"## **Heading** with `code`",
		"__double underscore__",
		"***triple***",
		"line ► arrow • bullet\n\n\n\nend   ",
		"```unterminated fence\n**x**",
		"Привет 👋\n✅ Задачи: 3\n\n\n💪 Мотивация",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestSanitizeListLines(t *testing.T) {
	got := SanitizeListLines([]string{"- Read   a book", "", "  2) Walk", "•", "✓ Sleep well"})
	assert.Equal(t, []string{"Read a book", "Walk", "Sleep well"}, got)
}
