package transcript

import (
	"strings"

	"github.com/MrWong99/stumpscribe/internal/transcript/fuzzy"
)

// NormalizePhrases replaces every whitespace-delimited token of text whose
// case-insensitive similarity to a variant in hints is at least threshold with
// that variant's canonical phrase.
//
// The text is tokenised once. Hint pairs are visited in table order and each
// pair is tested against every token index, so a later pair may overwrite the
// replacement written by an earlier one. Tokens are compared one at a time:
// multi-word variants can therefore only ever match a single token that is
// itself a near copy of the whole phrase. The number of tokens never changes
// and the result is joined with single spaces.
func NormalizePhrases(text string, hints *PhraseHints, threshold int) string {
	out, _ := normalizePhrases(text, freeze(Tables{Hints: hints}).hints, threshold)
	return out
}

// ApplyExact replaces every non-overlapping occurrence of each key of table
// with its value, visiting the entries in table order.
func ApplyExact(text string, table *ExactTable) string {
	out, _ := applyExact(text, freeze(Tables{Exact: table}).exact)
	return out
}

// ApplyContext replaces each key of table with its rule's replacement, but
// only when the key occurs in text and at least one of the rule's terms
// occurs anywhere in text. Terms are checked in order and the first hit
// decides; the text is not rescanned after a replacement.
func ApplyContext(text string, table *ContextTable) string {
	out, _ := applyContext(text, freeze(Tables{Context: table}).context)
	return out
}

func normalizePhrases(text string, hints []hintPair, threshold int) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return "", nil
	}

	var corrections []Correction
	for _, h := range hints {
		for i, tok := range tokens {
			score := fuzzy.FoldedRatio(tok, h.variant)
			if score < threshold {
				continue
			}
			if tok != h.canonical {
				corrections = append(corrections, Correction{
					Original:    tok,
					Corrected:   h.canonical,
					Confidence:  float64(score) / 100,
					Occurrences: 1,
					Method:      MethodFuzzy,
				})
			}
			tokens[i] = h.canonical
		}
	}
	return strings.Join(tokens, " "), corrections
}

func applyExact(text string, table []exactPair) (string, []Correction) {
	var corrections []Correction
	for _, e := range table {
		n := strings.Count(text, e.wrong)
		if n == 0 {
			continue
		}
		text = strings.ReplaceAll(text, e.wrong, e.right)
		corrections = append(corrections, Correction{
			Original:    e.wrong,
			Corrected:   e.right,
			Confidence:  1,
			Occurrences: n,
			Method:      MethodExact,
		})
	}
	return text, corrections
}

func applyContext(text string, table []contextPair) (string, []Correction) {
	var corrections []Correction
	for _, c := range table {
		if !strings.Contains(text, c.wrong) {
			continue
		}
		for _, term := range c.rule.Terms {
			if !strings.Contains(text, term) {
				continue
			}
			n := strings.Count(text, c.wrong)
			text = strings.ReplaceAll(text, c.wrong, c.rule.Replacement)
			corrections = append(corrections, Correction{
				Original:    c.wrong,
				Corrected:   c.rule.Replacement,
				Confidence:  1,
				Occurrences: n,
				Method:      MethodContext,
			})
			break
		}
	}
	return text, corrections
}
