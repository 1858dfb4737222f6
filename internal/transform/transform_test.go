package transform_test

import (
	"testing"

	"github.com/Maybol283/EthoScraper/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_ScalarOperations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		chain []any
		want  string
	}{
		{"strip", "  Hello  ", []any{"strip"}, "Hello"},
		{"lowercase", "HeLLo", []any{"lowercase"}, "hello"},
		{"uppercase", "hello", []any{"uppercase"}, "HELLO"},
		{"title case", "jane doe", []any{"title_case"}, "Jane Doe"},
		{"replace all occurrences", "a-b-c", []any{map[string]any{"replace": map[string]any{"from": "-", "to": "_"}}}, "a_b_c"},
		{"replace literal not regex", "a.b", []any{map[string]any{"replace": map[string]any{"from": ".", "to": "!"}}}, "a!b"},
		{"remove prefix present", "Dr. Doe", []any{map[string]any{"remove_prefix": "Dr. "}}, "Doe"},
		{"remove prefix absent is no-op", "Doe", []any{map[string]any{"remove_prefix": "Dr. "}}, "Doe"},
		{"remove suffix present", "Doe PhD", []any{map[string]any{"remove_suffix": " PhD"}}, "Doe"},
		{"remove suffix absent is no-op", "Doe", []any{map[string]any{"remove_suffix": " PhD"}}, "Doe"},
		{"truncate shorter input untouched", "abc", []any{map[string]any{"truncate": 10}}, "abc"},
		{"truncate counts runes", "héllo world", []any{map[string]any{"truncate": 5}}, "héllo"},
		{"remove html", "<p>Hello <b>world</b></p>", []any{"remove_html"}, "Hello world"},
		{"chain order strict", "  hello  ", []any{"strip", "uppercase"}, "HELLO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := transform.ParseChain(tt.chain)
			require.NoError(t, err)

			got := transform.Apply(transform.Scalar(tt.input), chain)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestApply_SequenceOperations(t *testing.T) {
	chain, err := transform.ParseChain([]any{
		map[string]any{"split": map[string]any{"delimiter": ","}},
		map[string]any{"limit": 2},
		map[string]any{"join": map[string]any{"separator": " | "}},
	})
	require.NoError(t, err)

	got := transform.Apply(transform.Scalar("a, b , c"), chain)
	assert.False(t, got.IsList())
	assert.Equal(t, "a | b", got.String())
}

func TestApply_SplitTrimsSubstrings(t *testing.T) {
	chain, err := transform.ParseChain([]any{map[string]any{"split": map[string]any{"delimiter": ";"}}})
	require.NoError(t, err)

	got := transform.Apply(transform.Scalar(" one ; two ;three"), chain)
	require.True(t, got.IsList())
	assert.Equal(t, []string{"one", "two", "three"}, got.Items())
}

func TestApply_LimitLargerThanSequence(t *testing.T) {
	chain, err := transform.ParseChain([]any{
		map[string]any{"split": map[string]any{"delimiter": ","}},
		map[string]any{"limit": 10},
	})
	require.NoError(t, err)

	got := transform.Apply(transform.Scalar("a,b"), chain)
	assert.Equal(t, []string{"a", "b"}, got.Items())
}

func TestApply_ScalarOpsMapOverSequences(t *testing.T) {
	chain, err := transform.ParseChain([]any{
		map[string]any{"split": map[string]any{"delimiter": ","}},
		"uppercase",
	})
	require.NoError(t, err)

	got := transform.Apply(transform.Scalar("a,b"), chain)
	assert.Equal(t, []string{"A", "B"}, got.Items())
}

func TestApply_EmptyInputShortCircuits(t *testing.T) {
	chain, err := transform.ParseChain([]any{"strip", map[string]any{"join": map[string]any{"separator": ","}}})
	require.NoError(t, err)

	got := transform.Apply(transform.Empty(), chain)
	assert.True(t, got.IsEmpty())
}

func TestApply_Deterministic(t *testing.T) {
	chain, err := transform.ParseChain([]any{
		"strip", "title_case",
		map[string]any{"replace": map[string]any{"from": "O", "to": "0"}},
		map[string]any{"truncate": 8},
	})
	require.NoError(t, err)

	first := transform.Apply(transform.Scalar("  office of records  "), chain)
	second := transform.Apply(transform.Scalar("  office of records  "), chain)
	assert.Equal(t, first.String(), second.String())
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips punctuation", "(01234) 567-890", "01234567890"},
		{"keeps leading plus", "+44 1234 567890", "+441234567890"},
		{"drops interior plus", "123+456", "123456"},
		{"letters removed", "ext. 123", "123"},
		{"empty input", "", ""},
	}

	chain, err := transform.ParseChain([]any{"normalize_phone"})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transform.Apply(transform.Scalar(tt.input), chain)
			assert.Equal(t, tt.want, got.String())

			// Idempotency: re-normalizing is a no-op
			again := transform.Apply(got, chain)
			assert.Equal(t, got.String(), again.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		entry any
	}{
		{"unknown name", "reverse"},
		{"unknown name with args", map[string]any{"reverse": map[string]any{"n": 1}}},
		{"bare name requiring args", "replace"},
		{"args on bare operation", map[string]any{"strip": map[string]any{"x": 1}}},
		{"multiple keys", map[string]any{"strip": nil, "lowercase": nil}},
		{"unused replace argument", map[string]any{"replace": map[string]any{"from": "a", "to": "b", "typo": "c"}}},
		{"negative limit", map[string]any{"limit": -1}},
		{"split without delimiter", map[string]any{"split": map[string]any{}}},
		{"wrong scalar type", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transform.Parse(tt.entry)
			assert.Error(t, err)
		})
	}
}

func TestFromMatches(t *testing.T) {
	assert.True(t, transform.FromMatches(nil).IsEmpty())
	assert.False(t, transform.FromMatches([]string{"a"}).IsList())
	assert.True(t, transform.FromMatches([]string{"a", "b"}).IsList())
}
