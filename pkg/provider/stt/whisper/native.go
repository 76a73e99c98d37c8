// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
)

// requiredSampleRate is the only input rate whisper.cpp accepts.
const requiredSampleRate = 16000

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded on the first
// Transcribe call and then shared by every later call until Close.
type NativeProvider struct {
	modelPath string
	language  string
	threads   uint

	loadOnce sync.Once
	model    whisperlib.Model
	loadErr  error

	// mu serialises inference; a whisper.cpp model saturates every core on
	// its own.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code for transcription
// (e.g., "en", "de", "fr") when the request does not carry one.
// Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeThreads sets the number of CPU threads whisper.cpp uses per
// inference. Zero keeps the library default.
func WithNativeThreads(n uint) NativeOption {
	return func(p *NativeProvider) { p.threads = n }
}

// NewNative creates a NativeProvider for the whisper.cpp model file at
// modelPath. The file must exist, but it is not loaded until the first
// transcription. The caller must call Close when the provider is no longer
// needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper: model file: %w", err)
	}

	p := &NativeProvider{
		modelPath: modelPath,
		language:  defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// load reads the model from disk exactly once.
func (p *NativeProvider) load() (whisperlib.Model, error) {
	p.loadOnce.Do(func() {
		start := time.Now()
		p.model, p.loadErr = whisperlib.New(p.modelPath)
		if p.loadErr != nil {
			p.loadErr = fmt.Errorf("whisper: load model %q: %w", p.modelPath, p.loadErr)
			return
		}
		slog.Info("whisper model loaded", "path", p.modelPath, "duration", time.Since(start))
	})
	return p.model, p.loadErr
}

// Close releases the whisper model if it was loaded.
func (p *NativeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		err := p.model.Close()
		p.model = nil
		return err
	}
	return nil
}

// Transcribe decodes the WAV file at req.AudioPath, runs whisper.cpp
// inference on a fresh context and returns the concatenated segment text.
// The file must be PCM WAV; any sample rate other than 16 kHz is rejected
// because whisper.cpp does not resample.
func (p *NativeProvider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	samples, sampleRate, err := decodeWAV(f)
	if err != nil {
		return nil, err
	}
	if sampleRate != requiredSampleRate {
		return nil, fmt.Errorf("whisper: sample rate %d Hz, want %d Hz", sampleRate, requiredSampleRate)
	}
	if len(samples) == 0 {
		return nil, stt.ErrEmptyAudio
	}

	model, err := p.load()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Each context is NOT thread-safe, but the model can be shared.
	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "err", err)
	}
	if p.threads > 0 {
		wctx.SetThreads(p.threads)
	}
	if prompt := stt.BuildPrompt(req.Keywords); prompt != "" {
		wctx.SetInitialPrompt(prompt)
	}

	// whisper.cpp checks the encoder callback before each window; returning
	// false stops inference once ctx is done.
	proceed := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(samples, proceed, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	var segs []stt.Segment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		segs = append(segs, stt.Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  strings.TrimSpace(segment.Text),
		})
	}

	return &stt.Transcript{
		Text:     stt.JoinSegments(segs),
		Language: lang,
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(sampleRate),
		Segments: segs,
	}, nil
}
