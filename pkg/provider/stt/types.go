package stt

import (
	"strings"
	"time"
)

// Transcript is the result of a single [Provider.Transcribe] call.
type Transcript struct {
	// Text is the full transcribed speech content, segments joined with
	// single spaces.
	Text string

	// Language is the language the engine used or detected. May be empty.
	Language string

	// Duration is the length of the transcribed audio when the provider
	// reports it. Zero otherwise.
	Duration time.Duration

	// Segments holds per-segment timing when available (whisper.cpp).
	// May be nil for providers that only return plain text.
	Segments []Segment
}

// Segment is one timed span of a [Transcript].
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// blankMarkers are placeholder tokens whisper emits for silent stretches.
var blankMarkers = []string{"[BLANK_AUDIO]", "[ Silence ]", "(silence)"}

// CleanText strips whisper silence markers from text and trims surrounding
// whitespace.
func CleanText(text string) string {
	for _, m := range blankMarkers {
		text = strings.ReplaceAll(text, m, "")
	}
	return strings.TrimSpace(text)
}

// JoinSegments concatenates the cleaned text of segs with single spaces,
// skipping segments that are empty after cleaning.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := CleanText(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// MaxPromptWords caps the initial prompt built by [BuildPrompt]. Whisper
// models truncate prompts to roughly 224 tokens anyway.
const MaxPromptWords = 150

// BuildPrompt joins keywords into a comma separated initial prompt, capped at
// [MaxPromptWords] words. Returns "" when keywords is empty.
func BuildPrompt(keywords []string) string {
	var (
		parts []string
		words int
	)
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		n := len(strings.Fields(k))
		if words+n > MaxPromptWords {
			break
		}
		words += n
		parts = append(parts, k)
	}
	return strings.Join(parts, ", ")
}
