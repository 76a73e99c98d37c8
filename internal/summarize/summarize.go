// Package summarize condenses corrected transcripts into a short abstract
// using an LLM provider.
//
// Generation is deterministic: temperature is fixed at zero and the output is
// bounded by a token budget. The input is cut to a character window and then
// shortened further until the provider's token count fits the input budget.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/stumpscribe/pkg/provider/llm"
)

// Defaults applied by [New] when no option overrides them.
const (
	DefaultMaxTokens      = 150
	DefaultMinWords       = 30
	DefaultMaxInputChars  = 2048
	DefaultMaxInputTokens = 512
)

// maxFitRounds bounds how often the input is re-counted while shrinking.
const maxFitRounds = 8

// promptTemplate is the system prompt; %d is the minimum word count.
const promptTemplate = `You summarize transcripts of political videos.
Write a neutral, factual summary of at least %d words in plain prose.
Keep names, offices, places and policy positions exactly as they appear in the transcript.
Do not add information that is not in the transcript.`

// Summarizer produces a short summary of a transcript.
type Summarizer interface {
	// Summarize returns a summary of text. Empty text yields an empty summary.
	Summarize(ctx context.Context, text string) (string, error)
}

// Compile-time assertion that LLMSummarizer satisfies Summarizer.
var _ Summarizer = (*LLMSummarizer)(nil)

// Option is a functional option for configuring an [LLMSummarizer].
type Option func(*LLMSummarizer)

// WithMaxTokens bounds the length of the generated summary. Values <= 0 are
// ignored.
func WithMaxTokens(n int) Option {
	return func(s *LLMSummarizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithMinWords sets the minimum summary length requested from the model.
// Values <= 0 are ignored.
func WithMinWords(n int) Option {
	return func(s *LLMSummarizer) {
		if n > 0 {
			s.minWords = n
		}
	}
}

// WithMaxInputChars sets how many characters of the transcript are sent to
// the model. Values <= 0 are ignored.
func WithMaxInputChars(n int) Option {
	return func(s *LLMSummarizer) {
		if n > 0 {
			s.maxInputChars = n
		}
	}
}

// WithMaxInputTokens sets the token budget for the transcript as counted by
// the provider. Values <= 0 are ignored.
func WithMaxInputTokens(n int) Option {
	return func(s *LLMSummarizer) {
		if n > 0 {
			s.maxInputTokens = n
		}
	}
}

// LLMSummarizer uses an LLM provider to summarise transcripts. It holds no
// mutable state and is safe for concurrent use.
type LLMSummarizer struct {
	llm           llm.Provider
	maxTokens     int
	minWords      int
	maxInputChars  int
	maxInputTokens int
}

// New creates a new [LLMSummarizer] backed by the given provider.
//
// The output budget is clamped to the model's MaxOutputTokens and the input
// budget to whatever the context window leaves after the output, when the
// provider reports those limits.
func New(provider llm.Provider, opts ...Option) *LLMSummarizer {
	s := &LLMSummarizer{
		llm:            provider,
		maxTokens:      DefaultMaxTokens,
		minWords:       DefaultMinWords,
		maxInputChars:  DefaultMaxInputChars,
		maxInputTokens: DefaultMaxInputTokens,
	}
	for _, o := range opts {
		o(s)
	}

	caps := provider.Capabilities()
	if caps.MaxOutputTokens > 0 && s.maxTokens > caps.MaxOutputTokens {
		s.maxTokens = caps.MaxOutputTokens
	}
	if caps.ContextWindow > 0 {
		if room := caps.ContextWindow - s.maxTokens; room > 0 && s.maxInputTokens > room {
			s.maxInputTokens = room
		}
	}
	return s
}

// MaxTokens returns the effective output budget after clamping.
func (s *LLMSummarizer) MaxTokens() int { return s.maxTokens }

// MaxInputTokens returns the effective input budget after clamping.
func (s *LLMSummarizer) MaxInputTokens() int { return s.maxInputTokens }

// Summarize sends the (truncated) transcript to the LLM and returns the
// trimmed summary text.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(promptTemplate, s.minWords),
		Messages: []llm.Message{
			{
				Role:    llm.RoleUser,
				Content: s.fitInput(text),
			},
		},
		Temperature: 0,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("summarize: provider returned no response")
	}
	return strings.TrimSpace(resp.Content), nil
}

// Truncate shortens text to at most maxChars runes, cutting back to the last
// word boundary when one exists. Text that already fits is returned as is.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	cut := runes[:maxChars]
	if !unicode.IsSpace(runes[maxChars]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace)
}

// fitInput cuts text to the character window and then keeps shortening it
// in proportion to the overshoot until CountTokens reports it within the
// input budget. A counting error leaves the character cut in place.
func (s *LLMSummarizer) fitInput(text string) string {
	text = Truncate(text, s.maxInputChars)
	chars := utf8.RuneCountInString(text)
	for range maxFitRounds {
		n, err := s.llm.CountTokens([]llm.Message{{Role: llm.RoleUser, Content: text}})
		if err != nil {
			slog.Warn("summarize: token count failed, using character cut", "err", err)
			return text
		}
		if n <= s.maxInputTokens {
			return text
		}
		next := min(chars*s.maxInputTokens/n, chars-1)
		if next <= 0 {
			return ""
		}
		text = Truncate(text, next)
		chars = utf8.RuneCountInString(text)
	}
	return text
}
