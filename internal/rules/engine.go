package rules

import (
	"strconv"

	"github.com/sift/sift/internal/config"
)

// Engine evaluates compiled rules. It is immutable once built and safe for
// concurrent use.
type Engine struct {
	Rules []Rule
	index map[string]int
}

func NewEngine(rules []Rule) *Engine {
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.ID] = i
	}
	return &Engine{Rules: rules, index: index}
}

// Evaluate runs every rule over input.
func (e *Engine) Evaluate(input string) Result {
	return e.EvaluateRules(input, nil)
}

// EvaluateRules runs the rules named in ids, or every rule when ids is empty.
// Unknown ids are ignored.
func (e *Engine) EvaluateRules(input string, ids []string) Result {
	result := Result{Bytes: int64(len(input))}
	for _, rule := range e.selectRules(ids) {
		matches, truncated := rule.evaluate(input)
		result.add(rule, matches, truncated)
	}
	return result
}

func (e *Engine) selectRules(ids []string) []*Rule {
	out := make([]*Rule, 0, len(e.Rules))
	if len(ids) == 0 {
		for i := range e.Rules {
			out = append(out, &e.Rules[i])
		}
		return out
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		i, ok := e.index[id]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, &e.Rules[i])
	}
	return out
}

// Info describes every compiled rule in declaration order.
func (e *Engine) Info() []RuleInfo {
	out := make([]RuleInfo, len(e.Rules))
	for i, r := range e.Rules {
		out[i] = RuleInfo{
			ID:          r.ID,
			Alphabet:    alphabetOf(r.matcher.unit()),
			Transforms:  r.Transforms.Names(),
			Patterns:    r.matcher.patternCount(),
			Nodes:       r.matcher.nodeCount(),
			Fingerprint: strconv.FormatUint(r.matcher.fingerprint(), 16),
		}
	}
	return out
}

func (r *Rule) evaluate(input string) ([]Match, bool) {
	normalized := r.Transforms.Apply(input)

	var matches []Match
	truncated := false
	r.matcher.scan(normalized, func(h hit) bool {
		if r.MaxMatches > 0 && len(matches) == r.MaxMatches {
			truncated = true
			return false
		}
		matches = append(matches, r.match(h))
		return true
	})
	return matches, truncated
}

func (r *Rule) match(h hit) Match {
	return Match{
		RuleID:   r.ID,
		Pattern:  h.pattern,
		Start:    h.start,
		End:      h.end,
		Unit:     r.matcher.unit(),
		Score:    r.Score,
		Tags:     r.Tags,
		Evidence: Snippet(h.evidence),
	}
}

func (res *Result) add(rule *Rule, matches []Match, truncated bool) {
	if truncated {
		res.Truncated = append(res.Truncated, rule.ID)
	}
	if len(matches) == 0 {
		return
	}
	res.Score += rule.Score
	res.Rules = append(res.Rules, rule.ID)
	res.Matches = append(res.Matches, matches...)
}

func alphabetOf(u Unit) string {
	if u == UnitRune {
		return config.AlphabetRunes
	}
	return config.AlphabetBytes
}
