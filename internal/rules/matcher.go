package rules

import (
	"unicode/utf8"

	"github.com/sift/sift/internal/ahocorasick"
)

type byteMatcher struct {
	a *ahocorasick.Automaton[byte]
}

func newByteMatcher(patterns []string, caseInsensitive bool) (*byteMatcher, error) {
	raw := make([][]byte, len(patterns))
	for i, p := range patterns {
		raw[i] = []byte(p)
	}
	cmp := ahocorasick.Natural[byte]()
	if caseInsensitive {
		cmp = ahocorasick.FoldBytes()
	}
	a, err := ahocorasick.NewWithComparer(raw, cmp)
	if err != nil {
		return nil, err
	}
	return &byteMatcher{a: a}, nil
}

func (m *byteMatcher) scan(input string, fn func(hit) bool) {
	data := []byte(input)
	m.a.NewStream().Feed(data, func(match ahocorasick.Match[byte]) bool {
		return fn(hit{
			pattern:  string(match.Pattern),
			start:    match.Start(),
			end:      match.End,
			evidence: string(data[match.Start():match.End]),
		})
	})
}

func (m *byteMatcher) stream() streamer {
	return &byteStream{s: m.a.NewStream()}
}

func (m *byteMatcher) unit() Unit          { return UnitByte }
func (m *byteMatcher) patternCount() int   { return m.a.PatternCount() }
func (m *byteMatcher) nodeCount() int      { return m.a.NodeCount() }
func (m *byteMatcher) fingerprint() uint64 { return m.a.Fingerprint() }

type byteStream struct {
	s *ahocorasick.Stream[byte]
}

func (b *byteStream) feed(chunk []byte, fn func(hit) bool) bool {
	return b.s.Feed(chunk, func(match ahocorasick.Match[byte]) bool {
		p := string(match.Pattern)
		return fn(hit{pattern: p, start: match.Start(), end: match.End, evidence: p})
	})
}

func (b *byteStream) flush(func(hit) bool) bool { return true }

type runeMatcher struct {
	a *ahocorasick.Automaton[rune]
}

func newRuneMatcher(patterns []string, caseInsensitive bool) (*runeMatcher, error) {
	raw := make([][]rune, len(patterns))
	for i, p := range patterns {
		raw[i] = []rune(p)
	}
	cmp := ahocorasick.Natural[rune]()
	if caseInsensitive {
		cmp = ahocorasick.FoldRunes()
	}
	a, err := ahocorasick.NewWithComparer(raw, cmp)
	if err != nil {
		return nil, err
	}
	return &runeMatcher{a: a}, nil
}

func (m *runeMatcher) scan(input string, fn func(hit) bool) {
	runes := []rune(input)
	m.a.NewStream().Feed(runes, func(match ahocorasick.Match[rune]) bool {
		return fn(hit{
			pattern:  string(match.Pattern),
			start:    match.Start(),
			end:      match.End,
			evidence: string(runes[match.Start():match.End]),
		})
	})
}

func (m *runeMatcher) stream() streamer {
	return &runeStream{s: m.a.NewStream()}
}

func (m *runeMatcher) unit() Unit          { return UnitRune }
func (m *runeMatcher) patternCount() int   { return m.a.PatternCount() }
func (m *runeMatcher) nodeCount() int      { return m.a.NodeCount() }
func (m *runeMatcher) fingerprint() uint64 { return m.a.Fingerprint() }

// runeStream decodes UTF-8 incrementally. An encoded rune split across two
// chunks is held in carry until the rest arrives.
type runeStream struct {
	s     *ahocorasick.Stream[rune]
	carry []byte
	one   [1]rune
}

func (r *runeStream) feed(chunk []byte, fn func(hit) bool) bool {
	for len(r.carry) > 0 {
		n := len(r.carry)
		take := min(utf8.UTFMax-n, len(chunk))
		joined := append(r.carry[:n:n], chunk[:take]...)
		if !utf8.FullRune(joined) {
			r.carry = joined
			return true
		}
		value, size := utf8.DecodeRune(joined)
		if size >= n {
			chunk = chunk[size-n:]
			r.carry = r.carry[:0]
		} else {
			r.carry = append(r.carry[:0], r.carry[size:]...)
		}
		if !r.push(value, fn) {
			return false
		}
	}

	for len(chunk) > 0 {
		if !utf8.FullRune(chunk) {
			r.carry = append(r.carry[:0], chunk...)
			return true
		}
		value, size := utf8.DecodeRune(chunk)
		chunk = chunk[size:]
		if !r.push(value, fn) {
			return false
		}
	}
	return true
}

// flush reports a dangling partial sequence as replacement runes, which is
// how a whole-input decode would see it.
func (r *runeStream) flush(fn func(hit) bool) bool {
	pending := r.carry
	r.carry = nil
	for range pending {
		if !r.push(utf8.RuneError, fn) {
			return false
		}
	}
	return true
}

func (r *runeStream) push(value rune, fn func(hit) bool) bool {
	r.one[0] = value
	return r.s.Feed(r.one[:], func(match ahocorasick.Match[rune]) bool {
		p := string(match.Pattern)
		return fn(hit{pattern: p, start: match.Start(), end: match.End, evidence: p})
	})
}
