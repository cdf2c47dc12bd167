package rules

import "unicode/utf8"

// MaxEvidence caps the bytes of input kept as match evidence.
const MaxEvidence = 64

// Snippet truncates value to MaxEvidence bytes without splitting a rune.
func Snippet(value string) string {
	if len(value) <= MaxEvidence {
		return value
	}
	cut := MaxEvidence
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
