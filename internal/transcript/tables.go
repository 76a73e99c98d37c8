package transcript

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultThreshold is the minimum similarity ratio (0–100) at which a token
// is rewritten to a canonical phrase.
const DefaultThreshold = 85

// PhraseHints maps a canonical display phrase to the spelling variants that
// should be fuzzy-matched against transcript tokens. Iteration order is the
// order in which phrases were added.
type PhraseHints = orderedmap.OrderedMap[string, []string]

// ExactTable maps a literal wrong substring to its replacement.
type ExactTable = orderedmap.OrderedMap[string, string]

// ContextTable maps a literal wrong substring to a [ContextRule].
type ContextTable = orderedmap.OrderedMap[string, ContextRule]

// ContextRule is the replacement for an ambiguous substring together with the
// words that must appear somewhere in the same transcript before the
// replacement is applied.
type ContextRule struct {
	Replacement string   `yaml:"replacement" json:"replacement"`
	Terms       []string `yaml:"terms" json:"terms"`
}

// Tables bundles the three correction tables consumed by the pipeline.
// A nil table is treated as empty.
type Tables struct {
	Hints   *PhraseHints
	Exact   *ExactTable
	Context *ContextTable
}

// defaultPhrases are the proper nouns and campaign topics the transcriber most
// often misspells. Each phrase is its own only variant.
var defaultPhrases = []string{
	"Ruben Gallego",
	"Kari Lake",
	"Josh Stein",
	"Mark Robinson",
	"Joyce Craig",
	"Kelly Ayotte",
	"Jacky Rosen",
	"Sam Brown",
	"Sherrod Brown",
	"Bernie Moreno",
	"Bob Casey",
	"Dave McCormick",
	"Kamala Harris",
	"Donald Trump",
	"Tammy Baldwin",
	"Eric Hovde",
	"Mark Halperin",
	"Inflation",
	"Immigration",
	"Greedflation",
	"Economy",
	"Democrat",
	"Republican",
	"Abortion",
	"Reproductive",
}

// DefaultTables returns a fresh copy of the built-in correction tables.
// Callers may extend the result before handing it to [NewPipeline].
func DefaultTables() Tables {
	hints := orderedmap.New[string, []string](len(defaultPhrases))
	for _, p := range defaultPhrases {
		hints.Set(p, []string{p})
	}

	exact := orderedmap.New[string, string](orderedmap.WithInitialData(
		orderedmap.Pair[string, string]{Key: "Kerry Lake", Value: "Kari Lake"},
		orderedmap.Pair[string, string]{Key: "Donald Drumpf", Value: "Donald Trump"},
	))

	gated := orderedmap.New[string, ContextRule](orderedmap.WithInitialData(
		orderedmap.Pair[string, ContextRule]{
			Key:   "Kerry Lake",
			Value: ContextRule{Replacement: "Kari Lake", Terms: []string{"Republican", "Arizona"}},
		},
	))

	return Tables{Hints: hints, Exact: exact, Context: gated}
}

// Merge returns a new [Tables] holding every entry of t followed by every
// entry of overlay. Keys present in both keep their position from t and take
// their value from overlay. Neither input is modified.
func (t Tables) Merge(overlay Tables) Tables {
	return Tables{
		Hints:   mergeMaps(t.Hints, overlay.Hints),
		Exact:   mergeMaps(t.Exact, overlay.Exact),
		Context: mergeMaps(t.Context, overlay.Context),
	}
}

func mergeMaps[K comparable, V any](base, overlay *orderedmap.OrderedMap[K, V]) *orderedmap.OrderedMap[K, V] {
	out := orderedmap.New[K, V](base.Len() + overlay.Len())
	for p := base.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	for p := overlay.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// hintPair is one (canonical, variant) comparison of the fuzzy pass.
type hintPair struct {
	canonical string
	variant   string
}

type exactPair struct {
	wrong string
	right string
}

type contextPair struct {
	wrong string
	rule  ContextRule
}

// frozenTables is an immutable snapshot of [Tables]. Slices are copied so
// later changes to the source maps cannot leak into a running pipeline.
// Entries with an empty key, variant or context term are dropped: an empty pattern would
// match between every pair of characters.
type frozenTables struct {
	hints   []hintPair
	exact   []exactPair
	context []contextPair
}

func freeze(t Tables) frozenTables {
	var f frozenTables
	for p := t.Hints.Oldest(); p != nil; p = p.Next() {
		for _, v := range p.Value {
			if v == "" {
				continue
			}
			f.hints = append(f.hints, hintPair{canonical: p.Key, variant: v})
		}
	}
	for p := t.Exact.Oldest(); p != nil; p = p.Next() {
		if p.Key == "" {
			continue
		}
		f.exact = append(f.exact, exactPair{wrong: p.Key, right: p.Value})
	}
	for p := t.Context.Oldest(); p != nil; p = p.Next() {
		if p.Key == "" {
			continue
		}
		rule := ContextRule{Replacement: p.Value.Replacement}
		for _, term := range p.Value.Terms {
			if term != "" {
				rule.Terms = append(rule.Terms, term)
			}
		}
		f.context = append(f.context, contextPair{wrong: p.Key, rule: rule})
	}
	return f
}
