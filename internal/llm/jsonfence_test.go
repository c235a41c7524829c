package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "single line fence", input: "```json {\"a\":1} ```", want: `{"a":1}`},
		{name: "fence without language", input: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "nested fences", input: "```json\n```json\n{\"a\":1}\n```\n```", want: `{"a":1}`},
		{name: "prose around fence", input: "Here you go:\n```json\n{\"a\":1}\n```\nThanks", want: `{"a":1}`},
		{name: "prose without fence", input: `Result: {"a":[1,2]} done`, want: `{"a":[1,2]}`},
		{name: "garbage", input: "not json", want: "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestDecodeJSON_FencedMatchesUnwrapped(t *testing.T) {
	var fenced, plain map[string][]int
	require.NoError(t, DecodeJSON("```json\n{\"Problem\":[1,2]}\n```", &fenced))
	require.NoError(t, DecodeJSON(`{"Problem":[1,2]}`, &plain))
	assert.Equal(t, plain, fenced)
}

func TestDecodeJSON_Errors(t *testing.T) {
	var v map[string]any
	for _, input := range []string{"", "   ", "```json\n```", "definitely not json"} {
		err := DecodeJSON(input, &v)
		require.Error(t, err, input)
		assert.True(t, domain.IsType(err, domain.ErrorTypeResponseParse), input)
	}
}
