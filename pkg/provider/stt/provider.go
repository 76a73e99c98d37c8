// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a batch transcription engine (a whisper.cpp server,
// the whisper.cpp library linked in-process, or the OpenAI audio API) and
// turns a complete audio file on local disk into text. Transcription is a
// single blocking call: the caller hands over the path of an artifact it owns
// and receives the full [Transcript] once the engine has finished.
//
// Implementations must be safe for concurrent use. Engines that hold a loaded
// model share it across calls rather than reloading it per request.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when the audio artifact contains no samples.
var ErrEmptyAudio = errors.New("stt: audio contains no samples")

// Request describes one transcription job.
type Request struct {
	// AudioPath is the local path of the audio artifact. The provider reads
	// the file but never removes it; cleanup belongs to the caller.
	AudioPath string

	// Language is the ISO-639-1 code of the spoken language (e.g., "en").
	// An empty string lets the provider auto-detect the language, if supported.
	Language string

	// Keywords is a list of vocabulary hints (candidate names, campaign
	// topics) forwarded to engines that accept an initial prompt. Providers
	// without prompt support ignore it.
	Keywords []string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts the audio artifact named by req into text.
	//
	// Returns an error if the file cannot be read, the engine rejects it, or
	// ctx is cancelled before the engine answers. A successful call with
	// silent audio returns a Transcript with empty Text.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
