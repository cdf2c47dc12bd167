package ahocorasick

import (
	"encoding/binary"
	"hash/maphash"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Comparer supplies symbol equality and hashing for an alphabet.
// Equal symbols must hash to the same value.
type Comparer[T any] interface {
	Equal(a, b T) bool
	Hash(v T) uint64
}

// naturalSeed is shared so that every Natural comparer in a process hashes
// identically.
var naturalSeed = maphash.MakeSeed()

type natural[T comparable] struct{}

// Natural returns a Comparer using Go equality.
func Natural[T comparable]() Comparer[T] {
	return natural[T]{}
}

func (natural[T]) Equal(a, b T) bool { return a == b }

func (natural[T]) Hash(v T) uint64 { return maphash.Comparable(naturalSeed, v) }

type foldBytes struct{}

// FoldBytes compares bytes ignoring ASCII case.
func FoldBytes() Comparer[byte] {
	return foldBytes{}
}

func (foldBytes) Equal(a, b byte) bool { return lowerASCII(a) == lowerASCII(b) }

func (foldBytes) Hash(v byte) uint64 {
	return xxhash.Sum64([]byte{lowerASCII(v)})
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

type foldRunes struct{}

// FoldRunes compares runes under Unicode simple case folding, so 'k', 'K'
// and the Kelvin sign are all equal.
func FoldRunes() Comparer[rune] {
	return foldRunes{}
}

func (foldRunes) Equal(a, b rune) bool {
	if a == b {
		return true
	}
	return canonicalFold(a) == canonicalFold(b)
}

func (foldRunes) Hash(v rune) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(canonicalFold(v)))
	return xxhash.Sum64(buf[:])
}

// canonicalFold maps r to the smallest rune in its fold orbit.
func canonicalFold(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}

// ComparerFunc adapts a pair of functions to a Comparer.
type ComparerFunc[T any] struct {
	EqualFunc func(a, b T) bool
	HashFunc  func(v T) uint64
}

func (c ComparerFunc[T]) Equal(a, b T) bool { return c.EqualFunc(a, b) }

func (c ComparerFunc[T]) Hash(v T) uint64 { return c.HashFunc(v) }
