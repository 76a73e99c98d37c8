package transcript

// PipelineOption is a functional option for configuring a [CorrectionPipeline].
type PipelineOption func(*CorrectionPipeline)

// WithTables replaces the built-in tables with t. The tables are snapshotted
// when [NewPipeline] returns; later changes to t have no effect.
func WithTables(t Tables) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.source = t
	}
}

// WithThreshold sets the minimum similarity ratio (0–100) for the phrase
// normalisation pass. Default: 85.
func WithThreshold(threshold int) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.threshold = threshold
	}
}

// CorrectionPipeline is the three-pass implementation of [Pipeline]:
//
//  1. phrase normalisation against [PhraseHints],
//  2. exact substring replacement from [ExactTable],
//  3. context-gated substring replacement from [ContextTable].
//
// Its tables are frozen at construction, so a CorrectionPipeline is
// read-only and safe for concurrent use.
type CorrectionPipeline struct {
	source    Tables
	tables    frozenTables
	threshold int
}

// Ensure CorrectionPipeline satisfies the Pipeline interface at compile time.
var _ Pipeline = (*CorrectionPipeline)(nil)

// NewPipeline constructs a [CorrectionPipeline] using [DefaultTables] and
// [DefaultThreshold] unless overridden by opts.
func NewPipeline(opts ...PipelineOption) *CorrectionPipeline {
	p := &CorrectionPipeline{
		source:    DefaultTables(),
		threshold: DefaultThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	p.tables = freeze(p.source)
	p.source = Tables{}
	return p
}

// Threshold returns the similarity threshold used by the phrase pass.
func (p *CorrectionPipeline) Threshold() int { return p.threshold }

// Sizes reports the number of hint comparisons, exact entries and context
// entries the pipeline was built with.
func (p *CorrectionPipeline) Sizes() (hints, exact, context int) {
	return len(p.tables.hints), len(p.tables.exact), len(p.tables.context)
}

// Keywords returns the distinct canonical spellings the pipeline corrects
// towards, in table order. Transcribers use them as a vocabulary prompt.
func (p *CorrectionPipeline) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, h := range p.tables.hints {
		add(h.canonical)
	}
	for _, e := range p.tables.exact {
		add(e.right)
	}
	for _, c := range p.tables.context {
		add(c.rule.Replacement)
	}
	return out
}

// Correct runs the three passes over text in order and returns the result
// together with every substitution made.
func (p *CorrectionPipeline) Correct(text string) *CorrectedTranscript {
	result := &CorrectedTranscript{
		Original:    text,
		Corrections: []Correction{},
	}

	working, fuzzyCorrections := normalizePhrases(text, p.tables.hints, p.threshold)
	working, exactCorrections := applyExact(working, p.tables.exact)
	working, contextCorrections := applyContext(working, p.tables.context)

	result.Corrected = working
	result.Corrections = append(result.Corrections, fuzzyCorrections...)
	result.Corrections = append(result.Corrections, exactCorrections...)
	result.Corrections = append(result.Corrections, contextCorrections...)
	return result
}
