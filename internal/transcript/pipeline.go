// Package transcript defines the correction pipeline used by stumpscribe to
// fix speech-to-text errors in the names and topics of political coverage.
//
// Raw transcripts routinely mangle candidate names ("Kerry Lake", "Kamla") and
// campaign vocabulary. The [Pipeline] rewrites a transcript in three fixed,
// single forward passes:
//
//  1. Phrase normalisation ([NormalizePhrases]): every whitespace token is
//     compared against every spelling variant of the [PhraseHints] table with
//     a case-insensitive similarity ratio. Tokens scoring at or above the
//     threshold are replaced by the canonical phrase.
//
//  2. Exact correction ([ApplyExact]): literal substrings from the
//     [ExactTable] are replaced globally, in table order.
//
//  3. Context correction ([ApplyContext]): an ambiguous substring is replaced
//     only when one of its context terms appears elsewhere in the transcript.
//
// Each [Correction] records which pass produced the substitution so callers
// can audit or display the changes. No pass ever fails; unmatched text passes
// through unchanged.
//
// Implementations of [Pipeline] must be safe for concurrent use.
package transcript

// Correction pass names reported in [Correction.Method].
const (
	MethodFuzzy   = "fuzzy"
	MethodExact   = "exact"
	MethodContext = "context"
)

// Correction captures a single substitution made by the pipeline.
type Correction struct {
	// Original is the text as it appeared before the pass ran. For the fuzzy
	// pass this is one token; for the substring passes it is the table key.
	Original string `json:"original"`

	// Corrected is the replacement written into the transcript.
	Corrected string `json:"corrected"`

	// Confidence is the similarity ratio scaled to [0, 1] for fuzzy matches
	// and 1.0 for table driven replacements.
	Confidence float64 `json:"confidence"`

	// Occurrences is how many places in the transcript were rewritten.
	Occurrences int `json:"occurrences"`

	// Method names the pass that produced the substitution:
	//   "fuzzy"   phrase normalisation.
	//   "exact"   direct substring table.
	//   "context" context-gated substring table.
	Method string `json:"method"`
}

// CorrectedTranscript is the output of a [Pipeline.Correct] call.
type CorrectedTranscript struct {
	// Original is the raw transcript text as received from the transcriber.
	Original string `json:"original"`

	// Corrected is the transcript after all three passes.
	Corrected string `json:"corrected"`

	// Corrections lists the substitutions in the order they were applied.
	// An empty (non-nil) slice means nothing was changed.
	Corrections []Correction `json:"corrections"`
}

// Pipeline applies the three correction passes to a raw transcript.
//
// Implementations must be safe for concurrent use.
type Pipeline interface {
	// Correct returns the corrected transcript together with an itemised
	// record of every substitution. It never fails and returns an empty
	// Corrected string for empty input.
	Correct(text string) *CorrectedTranscript
}
