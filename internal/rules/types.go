package rules

import "github.com/sift/sift/internal/normalize"

// Unit names what Match offsets count.
type Unit string

const (
	UnitByte Unit = "byte"
	UnitRune Unit = "rune"
)

type Rule struct {
	ID              string
	Score           int
	Tags            []string
	Alphabet        string
	CaseInsensitive bool
	Transforms      normalize.Set
	MaxMatches      int

	matcher matcher
}

// Match is one pattern occurrence attributed to a rule. Offsets are in Unit
// and refer to the transformed input when the rule has transforms.
type Match struct {
	RuleID   string   `json:"rule_id"`
	Pattern  string   `json:"pattern"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Unit     Unit     `json:"unit"`
	Score    int      `json:"score"`
	Tags     []string `json:"tags,omitempty"`
	Evidence string   `json:"evidence"`
}

type Result struct {
	// Score sums the score of each rule that matched at least once.
	Score     int      `json:"score"`
	Matches   []Match  `json:"matches"`
	Rules     []string `json:"rules"`
	Truncated []string `json:"truncated,omitempty"`
	Bytes     int64    `json:"bytes"`
}

// RuleInfo describes a compiled rule.
type RuleInfo struct {
	ID          string   `json:"id"`
	Alphabet    string   `json:"alphabet"`
	Transforms  []string `json:"transforms"`
	Patterns    int      `json:"patterns"`
	Nodes       int      `json:"nodes"`
	Fingerprint string   `json:"fingerprint"`
}

// hit is a matcher-level occurrence before it is attributed to a rule.
type hit struct {
	pattern    string
	start, end int
	evidence   string
}

type matcher interface {
	scan(input string, fn func(hit) bool)
	stream() streamer
	unit() Unit
	patternCount() int
	nodeCount() int
	fingerprint() uint64
}

type streamer interface {
	feed(chunk []byte, fn func(hit) bool) bool
	flush(fn func(hit) bool) bool
}
