package ahocorasick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hit struct {
	Pattern string
	End     int
}

func bytePatterns(patterns ...string) [][]byte {
	out := make([][]byte, len(patterns))
	for i, p := range patterns {
		out[i] = []byte(p)
	}
	return out
}

func hits(a *Automaton[byte], input string) []hit {
	var out []hit
	for m := range a.MatchSlice([]byte(input)) {
		out = append(out, hit{Pattern: string(m.Pattern), End: m.End})
	}
	return out
}

func TestAutomaton_GoldenScenario(t *testing.T) {
	a, err := New(bytePatterns("abc", "a", "bc", "ca", "bca"))
	require.NoError(t, err)

	want := []hit{
		{"a", 1},
		{"abc", 3}, {"bc", 3},
		{"bca", 4}, {"ca", 4}, {"a", 4},
		{"abc", 6}, {"bc", 6},
		{"bca", 7}, {"ca", 7}, {"a", 7},
		{"a", 9},
		{"a", 11},
		{"a", 14},
		{"abc", 16}, {"bc", 16},
	}
	assert.Equal(t, want, hits(a, "abcabcaba_abbabcc"))
}

func TestAutomaton_NestedSuffixes(t *testing.T) {
	a, err := New(bytePatterns("a", "ba", "aba"))
	require.NoError(t, err)

	got := a.FindAll([]byte("aba"))
	require.Len(t, got, 4)

	type span struct {
		Pattern    string
		Start, End int
	}
	spans := make([]span, len(got))
	for i, m := range got {
		spans[i] = span{string(m.Pattern), m.Start(), m.End}
	}
	assert.Equal(t, []span{
		{"a", 0, 1},
		{"aba", 0, 3},
		{"ba", 1, 3},
		{"a", 2, 3},
	}, spans)
}

func TestAutomaton_ClassicDictionary(t *testing.T) {
	a, err := New(bytePatterns("he", "she", "his", "hers"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  []hit
	}{
		{"suffix inside longer pattern", "she", []hit{{"she", 3}, {"he", 3}}},
		{"failure into longer branch", "ushers", []hit{{"she", 4}, {"he", 4}, {"hers", 6}}},
		{"separate words", "he said his", []hit{{"he", 2}, {"his", 11}}},
		{"no matches", "abc", nil},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hits(a, tt.input))
		})
	}
}

func TestAutomaton_FiltersEmptyPatterns(t *testing.T) {
	a, err := New([][]byte{nil, []byte("ab"), {}, []byte("b")})
	require.NoError(t, err)

	assert.Equal(t, 2, a.PatternCount())
	assert.Equal(t, bytePatterns("ab", "b"), a.Patterns())
	assert.Equal(t, []hit{{"ab", 2}, {"b", 2}}, hits(a, "ab"))
}

func TestAutomaton_PatternsAreCopies(t *testing.T) {
	src := bytePatterns("abc")
	a, err := New(src)
	require.NoError(t, err)

	src[0][0] = 'x'
	got := a.Patterns()
	got[0][1] = 'y'

	assert.Equal(t, bytePatterns("abc"), a.Patterns())
	assert.Equal(t, []hit{{"abc", 3}}, hits(a, "abc"))
}

func TestAutomaton_DuplicatePatternsKeepLaterMarking(t *testing.T) {
	a, err := New(bytePatterns("ab", "ab"))
	require.NoError(t, err)

	got := a.FindAll([]byte("ab"))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, a.PatternCount())
}

func TestAutomaton_EmptyPatternSet(t *testing.T) {
	for _, patterns := range [][][]byte{{}, {nil, {}}} {
		a, err := New(patterns)
		require.NoError(t, err)
		assert.Equal(t, 1, a.NodeCount())
		assert.Empty(t, a.FindAll([]byte("anything at all")))
	}
}

func TestAutomaton_ConstructionErrors(t *testing.T) {
	_, err := New[byte](nil)
	require.ErrorIs(t, err, ErrNilPatterns)

	_, err = NewWithComparer(bytePatterns("a"), nil)
	require.ErrorIs(t, err, ErrNoComparer)

	_, err = NewWithComparer[byte](nil, nil)
	require.ErrorIs(t, err, ErrNilPatterns)
}

func TestAutomaton_NilInput(t *testing.T) {
	a, err := New(bytePatterns("a"))
	require.NoError(t, err)

	seq, err := a.Matches(nil)
	require.ErrorIs(t, err, ErrNilInput)
	assert.Nil(t, seq)
}

func TestAutomaton_RebuildIsEquivalent(t *testing.T) {
	patterns := bytePatterns("abc", "a", "bc", "ca", "bca", "cab", "bb")
	first, err := New(patterns)
	require.NoError(t, err)
	second, err := New(patterns)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Equal(t, first.NodeCount(), second.NodeCount())
	for _, input := range []string{"", "abcabcaba_abbabcc", "cabbcab", "bbbbb", "zzz"} {
		assert.Equal(t, hits(first, input), hits(second, input), "input %q", input)
	}

	other, err := New(bytePatterns("abc", "a"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint(), other.Fingerprint())
}

func TestAutomaton_NodeSharing(t *testing.T) {
	a, err := New(bytePatterns("abc", "abd", "ab"))
	require.NoError(t, err)
	// root, a, b, c, d
	assert.Equal(t, 5, a.NodeCount())
}

func TestAutomaton_WideFanOut(t *testing.T) {
	var patterns [][]byte
	for c := byte('a'); c <= 'z'; c++ {
		patterns = append(patterns, []byte{'x', c})
	}
	a, err := New(patterns)
	require.NoError(t, err)

	got := hits(a, "xqxz")
	assert.Equal(t, []hit{{"xq", 2}, {"xz", 4}}, got)
}

func TestAutomaton_Structs(t *testing.T) {
	type token struct {
		Kind  string
		Value int
	}
	a, err := New([][]token{
		{{"op", 1}, {"num", 2}},
		{{"num", 2}},
	})
	require.NoError(t, err)

	got := a.FindAll([]token{{"num", 2}, {"op", 1}, {"num", 2}})
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].End)
	assert.Equal(t, []int{3, 3}, []int{got[1].End, got[2].End})
	assert.Equal(t, 0, got[1].Index)
	assert.Equal(t, 1, got[2].Index)
}
