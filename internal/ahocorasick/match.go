package ahocorasick

import (
	"iter"
	"slices"
)

// Match is one occurrence of a pattern in the input.
type Match[T any] struct {
	// Pattern aliases the automaton's copy and must not be modified.
	Pattern []T
	// Index is the pattern's position in Automaton.Patterns.
	Index int
	// End is the exclusive end offset, equal to the 1-based position of the
	// pattern's last symbol.
	End int
}

// Start returns the 0-based offset of the first matched symbol.
func (m Match[T]) Start() int {
	return m.End - len(m.Pattern)
}

// Matches returns a lazy sequence of every match in input. Each iteration
// starts from the root, so the returned sequence can be ranged over more than
// once if input can.
func (a *Automaton[T]) Matches(input iter.Seq[T]) (iter.Seq[Match[T]], error) {
	if input == nil {
		return nil, ErrNilInput
	}
	return func(yield func(Match[T]) bool) {
		s := a.NewStream()
		for symbol := range input {
			if !s.push(symbol, yield) {
				return
			}
		}
	}, nil
}

// MatchSlice is Matches over a slice.
func (a *Automaton[T]) MatchSlice(input []T) iter.Seq[Match[T]] {
	return func(yield func(Match[T]) bool) {
		s := a.NewStream()
		s.Feed(input, yield)
	}
}

// FindAll collects every match in input.
func (a *Automaton[T]) FindAll(input []T) []Match[T] {
	return slices.Collect(a.MatchSlice(input))
}

// Stream carries matching state across chunks of one input. Feeding an input
// in pieces yields the same matches as feeding it whole. A Stream must not be
// used from more than one goroutine at a time.
type Stream[T any] struct {
	a     *Automaton[T]
	state int32
	pos   int
}

// NewStream returns a Stream positioned at the start of a new input.
func (a *Automaton[T]) NewStream() *Stream[T] {
	return &Stream[T]{a: a, state: root}
}

// Pos returns the number of symbols consumed so far.
func (s *Stream[T]) Pos() int {
	return s.pos
}

// Reset rewinds the stream to the start of a new input.
func (s *Stream[T]) Reset() {
	s.state = root
	s.pos = 0
}

// Feed consumes chunk, passing each match to yield. It returns false as soon
// as yield does; the symbol being reported at that point counts as consumed.
func (s *Stream[T]) Feed(chunk []T, yield func(Match[T]) bool) bool {
	for _, symbol := range chunk {
		if !s.push(symbol, yield) {
			return false
		}
	}
	return true
}

func (s *Stream[T]) push(symbol T, yield func(Match[T]) bool) bool {
	s.pos++
	next, matched := s.a.step(s.state, symbol)
	s.state = next
	if !matched {
		return true
	}
	return s.a.emit(next, s.pos, yield)
}

// step applies one transition. It reports false when no node on the failure
// chain has an edge for symbol, in which case the walk restarts at the root.
func (a *Automaton[T]) step(state int32, symbol T) (int32, bool) {
	hash := a.cmp.Hash(symbol)
	for f := state; f != none; f = a.nodes[f].fail {
		if next := a.nodes[f].child(a.cmp, symbol, hash); next != none {
			return next, true
		}
	}
	return root, false
}

// emit reports the pattern ending at state, then every pattern on its output
// chain, all ending at end.
func (a *Automaton[T]) emit(state int32, end int, yield func(Match[T]) bool) bool {
	n := &a.nodes[state]
	if n.pattern != none && !yield(a.match(n.pattern, end)) {
		return false
	}
	for o := n.output; o != none; o = a.nodes[o].output {
		if !yield(a.match(a.nodes[o].pattern, end)) {
			return false
		}
	}
	return true
}

func (a *Automaton[T]) match(id int32, end int) Match[T] {
	return Match[T]{Pattern: a.patterns[id], Index: int(id), End: end}
}
