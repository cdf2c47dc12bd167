// Package ahocorasick implements the Aho-Corasick multi-pattern automaton over
// an arbitrary alphabet.
//
// An Automaton is built once from a fixed pattern set and never changes
// afterwards. Matching walks the input a single time and reports every
// occurrence of every pattern, including occurrences nested inside or
// overlapping other occurrences. Matches come out ordered by end position and,
// for a shared end position, from the longest pattern to the shortest.
//
// The automaton is safe for concurrent use by any number of matchers.
package ahocorasick

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrNilPatterns is returned when the pattern collection itself is nil.
	ErrNilPatterns = errors.New("ahocorasick: nil pattern set")
	// ErrNoComparer is returned by NewWithComparer when no Comparer is given.
	ErrNoComparer = errors.New("ahocorasick: nil comparer")
	// ErrNilInput is returned when Matches is called with a nil sequence.
	ErrNilInput = errors.New("ahocorasick: nil input")
)

// Automaton is an immutable Aho-Corasick automaton.
type Automaton[T any] struct {
	cmp      Comparer[T]
	nodes    []node[T]
	patterns [][]T
}

// New builds an automaton using Go equality on the alphabet.
func New[T comparable](patterns [][]T) (*Automaton[T], error) {
	return NewWithComparer(patterns, Natural[T]())
}

// NewWithComparer builds an automaton comparing symbols with cmp. Nil and
// empty patterns are dropped.
func NewWithComparer[T any](patterns [][]T, cmp Comparer[T]) (*Automaton[T], error) {
	if patterns == nil {
		return nil, ErrNilPatterns
	}
	if cmp == nil {
		return nil, ErrNoComparer
	}

	kept := make([][]T, 0, len(patterns))
	for _, p := range patterns {
		if len(p) == 0 {
			continue
		}
		kept = append(kept, append([]T(nil), p...))
	}

	t := buildTrie(cmp, kept)
	t.resolveLinks()

	return &Automaton[T]{cmp: cmp, nodes: t.nodes, patterns: kept}, nil
}

// Patterns returns the retained patterns in construction order. Match.Index
// refers to positions in this slice.
func (a *Automaton[T]) Patterns() [][]T {
	out := make([][]T, len(a.patterns))
	for i, p := range a.patterns {
		out[i] = append([]T(nil), p...)
	}
	return out
}

// PatternCount returns the number of retained patterns.
func (a *Automaton[T]) PatternCount() int {
	return len(a.patterns)
}

// NodeCount returns the number of trie nodes, root included.
func (a *Automaton[T]) NodeCount() int {
	return len(a.nodes)
}

// Fingerprint digests the retained patterns through the comparer's hash.
// Automata built from the same pattern list with equivalent comparers share
// a fingerprint within one process.
func (a *Automaton[T]) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, p := range a.patterns {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(p)))
		_, _ = d.Write(buf[:])
		for _, symbol := range p {
			binary.LittleEndian.PutUint64(buf[:], a.cmp.Hash(symbol))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}
