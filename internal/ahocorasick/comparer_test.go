package ahocorasick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldBytes(t *testing.T) {
	cmp := FoldBytes()
	assert.True(t, cmp.Equal('a', 'A'))
	assert.True(t, cmp.Equal('Z', 'z'))
	assert.False(t, cmp.Equal('a', 'b'))
	assert.False(t, cmp.Equal('@', '`'))
	assert.Equal(t, cmp.Hash('Q'), cmp.Hash('q'))

	a, err := NewWithComparer(bytePatterns("Select", "union"), cmp)
	require.NoError(t, err)
	assert.Equal(t, []hit{{"Select", 6}, {"union", 12}}, hits(a, "SELECT UNION"))
}

func TestFoldRunes(t *testing.T) {
	cmp := FoldRunes()
	assert.True(t, cmp.Equal('k', 'K'))
	assert.True(t, cmp.Equal('k', '\u212A'))
	assert.True(t, cmp.Equal('σ', 'Σ'))
	assert.True(t, cmp.Equal('ς', 'Σ'))
	assert.False(t, cmp.Equal('k', 'l'))
	assert.Equal(t, cmp.Hash('K'), cmp.Hash('k'))

	a, err := NewWithComparer([][]rune{[]rune("straße"), []rune("ΣΟΦΙΑ")}, cmp)
	require.NoError(t, err)

	got := a.FindAll([]rune("STRAßE und σοφια"))
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 6, got[0].End)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, 16, got[1].End)
	assert.Equal(t, 11, got[1].Start())
}

func TestComparerFunc(t *testing.T) {
	mod10 := ComparerFunc[int]{
		EqualFunc: func(a, b int) bool { return a%10 == b%10 },
		HashFunc:  func(v int) uint64 { return uint64(v % 10) },
	}

	a, err := NewWithComparer([][]int{{1, 2}}, Comparer[int](mod10))
	require.NoError(t, err)

	got := a.FindAll([]int{5, 11, 32, 1})
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].End)
}

func TestNatural(t *testing.T) {
	cmp := Natural[string]()
	assert.True(t, cmp.Equal("x", "x"))
	assert.False(t, cmp.Equal("x", "X"))
	assert.Equal(t, cmp.Hash("token"), Natural[string]().Hash("token"))
}
