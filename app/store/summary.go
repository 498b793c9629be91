package store

import (
	"unicode/utf8"

	"github.com/samber/lo"
)

var terminalPunctuation = []rune{'.', '!', '?', ',', ':', ';', '…'}

// NormalizeSummary appends a period to the summary, unless it already
// ends with a punctuation mark.
func NormalizeSummary(s string) string {
	last, _ := utf8.DecodeLastRuneInString(s)
	if lo.Contains(terminalPunctuation, last) {
		return s
	}
	return s + "."
}
