// Package fuzzy scores how similar two short strings are on a 0–100 scale.
//
// The score is the indel-normalised edit distance ratio: twice the length of
// the longest common subsequence divided by the combined length of both
// strings, scaled to 100 and rounded half-to-even. Identical strings score
// 100, strings with nothing in common score 0. Lengths are measured in runes,
// so accented proper nouns are compared character by character rather than
// byte by byte.
package fuzzy

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Ratio returns the case-sensitive similarity of a and b in [0, 100].
// When either string is empty the ratio is 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	lcs := matchr.LongestCommonSubsequence(a, b)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

// FoldedRatio is [Ratio] computed on the lower-cased forms of a and b.
func FoldedRatio(a, b string) int {
	return Ratio(strings.ToLower(a), strings.ToLower(b))
}
