package policy

type Verdict string

const (
	VerdictClean   Verdict = "clean"
	VerdictFlagged Verdict = "flagged"
	VerdictBlocked Verdict = "blocked"
)

// Decide maps a scan score to a verdict. A zero threshold flags any match.
// Only enforce mode blocks.
func Decide(mode string, score, threshold int) Verdict {
	if score <= 0 || score < threshold {
		return VerdictClean
	}

	switch mode {
	case "enforce":
		return VerdictBlocked
	default:
		return VerdictFlagged
	}
}

// Worst returns the more severe of two verdicts.
func Worst(a, b Verdict) Verdict {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(v Verdict) int {
	switch v {
	case VerdictBlocked:
		return 2
	case VerdictFlagged:
		return 1
	default:
		return 0
	}
}
