package rules

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sift/sift/internal/config"
	"github.com/sift/sift/internal/normalize"
)

var errNoPatterns = errors.New("no non-empty patterns")

func BuildEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for _, raw := range cfg.Rules {
		compiled, err := compileRule(raw, cfg.ResolvePath(raw.PatternsFile))
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", raw.ID, err)
		}
		rules = append(rules, compiled)
	}

	return NewEngine(rules), nil
}

func compileRule(raw config.Rule, patternsPath string) (Rule, error) {
	transforms, err := normalize.Parse(raw.Transforms)
	if err != nil {
		return Rule{}, err
	}
	if raw.DecodeDepth > 0 {
		transforms.DecodeDepth = raw.DecodeDepth
	}

	patterns := append([]string(nil), raw.Patterns...)
	if patternsPath != "" {
		fromFile, err := readPatterns(patternsPath)
		if err != nil {
			return Rule{}, err
		}
		patterns = append(patterns, fromFile...)
	}
	patterns = applyPatternTransforms(patterns, transforms)

	m, err := newMatcher(raw.Alphabet, patterns, raw.CaseInsensitive)
	if err != nil {
		return Rule{}, err
	}
	if m.patternCount() == 0 {
		return Rule{}, errNoPatterns
	}

	return Rule{
		ID:              raw.ID,
		Score:           raw.Score,
		Tags:            append([]string(nil), raw.Tags...),
		Alphabet:        raw.Alphabet,
		CaseInsensitive: raw.CaseInsensitive,
		Transforms:      transforms,
		MaxMatches:      raw.MaxMatches,
		matcher:         m,
	}, nil
}

// NewRule compiles a rule directly from patterns, outside any config file.
func NewRule(id string, score int, alphabet string, caseInsensitive bool, patterns []string, transforms ...string) (Rule, error) {
	return compileRule(config.Rule{
		ID:              id,
		Score:           score,
		Alphabet:        alphabet,
		CaseInsensitive: caseInsensitive,
		Transforms:      transforms,
		Patterns:        patterns,
	}, "")
}

func newMatcher(alphabet string, patterns []string, caseInsensitive bool) (matcher, error) {
	switch alphabet {
	case config.AlphabetBytes, "":
		return newByteMatcher(patterns, caseInsensitive)
	case config.AlphabetRunes:
		return newRuneMatcher(patterns, caseInsensitive)
	default:
		return nil, fmt.Errorf("unknown alphabet %q", alphabet)
	}
}

// applyPatternTransforms lowercases patterns for lowercasing rules so that
// they can still match the transformed input.
func applyPatternTransforms(patterns []string, transforms normalize.Set) []string {
	if !transforms.Has(normalize.Lowercase) {
		return patterns
	}

	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, strings.ToLower(p))
	}
	return out
}

func readPatterns(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}
