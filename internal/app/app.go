// Package app wires the stumpscribe subsystems into a running application.
//
// The App struct owns the request path of a transcription job: channel lookup,
// audio acquisition, speech-to-text, correction and the optional summary. New
// builds every collaborator from the config, Reload swaps the hot-reloadable
// parts (channel directory and correction tables), and Shutdown releases
// provider resources.
//
// For testing, inject doubles via functional options (WithResolver,
// WithAcquirer, WithSummarizer, WithMetrics). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/config"
	"github.com/MrWong99/stumpscribe/internal/media"
	"github.com/MrWong99/stumpscribe/internal/observe"
	"github.com/MrWong99/stumpscribe/internal/summarize"
	"github.com/MrWong99/stumpscribe/internal/transcript"
	"github.com/MrWong99/stumpscribe/internal/youtube"
	"github.com/MrWong99/stumpscribe/pkg/provider/llm"
	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
)

// Request validation errors. Handlers map them to client errors.
var (
	// ErrUnknownChannel is returned when the requested channel is not in
	// the directory.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrSummaryNotOffered is returned when a summary is requested for a
	// channel that does not offer one.
	ErrSummaryNotOffered = errors.New("summarization is not offered for this channel")

	// ErrSummarizerUnavailable is returned when a summary is requested but
	// no LLM provider is configured.
	ErrSummarizerUnavailable = errors.New("no summarization model configured")

	// ErrInvalidVideo is returned when the video reference is not a video id
	// or a YouTube URL.
	ErrInvalidVideo = errors.New("invalid video id")
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT stt.Provider
	LLM llm.Provider

	// STTName and LLMName label provider metrics.
	STTName string
	LLMName string
}

// Request asks for one video of a channel to be transcribed.
type Request struct {
	// Channel is the display name of the channel.
	Channel string `json:"channel"`

	// VideoID is a video id or any YouTube video URL.
	VideoID string `json:"video_id"`

	// Summarize asks for an LLM summary of the corrected transcript.
	Summarize bool `json:"summarize"`
}

// Result is the outcome of a successful transcription.
type Result struct {
	JobID    string `json:"job_id"`
	Channel  string `json:"channel"`
	VideoID  string `json:"video_id"`
	VideoURL string `json:"video_url"`

	// Raw is the transcriber output before correction.
	Raw string `json:"raw"`

	// Text is the corrected transcript.
	Text string `json:"text"`

	// Summary is empty unless a summary was requested.
	Summary string `json:"summary,omitempty"`

	Corrections []transcript.Correction `json:"corrections"`

	// Language is the language the transcriber used or detected.
	Language string `json:"language,omitempty"`

	// AudioDuration is zero when the transcriber does not report it.
	AudioDuration time.Duration `json:"audio_duration"`
	Elapsed       time.Duration `json:"elapsed"`
}

// App owns all subsystem lifetimes and runs transcription jobs.
type App struct {
	cfg       *config.Config
	providers *Providers

	resolver   youtube.Resolver
	acquirer   youtube.Acquirer
	summarizer summarize.Summarizer
	metrics    *observe.Metrics

	directory atomic.Pointer[channels.Directory]
	pipeline  atomic.Pointer[transcript.CorrectionPipeline]

	// jobs bounds concurrent transcriptions; inference saturates the host.
	jobs *semaphore.Weighted

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithResolver injects a video resolver instead of the Data API client.
func WithResolver(r youtube.Resolver) Option {
	return func(a *App) { a.resolver = r }
}

// WithAcquirer injects an audio acquirer instead of the ffmpeg-backed
// downloader.
func WithAcquirer(acq youtube.Acquirer) Option {
	return func(a *App) { a.acquirer = acq }
}

// WithSummarizer injects a summarizer instead of building one around the
// LLM provider.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(a *App) { a.summarizer = s }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). An STT provider is
// required; without an LLM provider summaries are unavailable.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, errors.New("app: no STT provider configured")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	dir, err := cfg.Directory()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.directory.Store(dir)
	a.pipeline.Store(cfg.Corrections.Pipeline())

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.resolver == nil {
		r, err := youtube.NewDataAPIResolver(ctx, cfg.YouTube.APIKey,
			youtube.WithMaxResults(cfg.YouTube.MaxResults),
		)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Debug("youtube resolver ready", "max_results", r.MaxResults(), "api_key", cfg.YouTube.APIKey != "")
		a.resolver = r
	}
	if a.acquirer == nil {
		a.acquirer = youtube.NewDownloader(
			media.NewConverter(cfg.Audio.FFmpegPath),
			youtube.WithTempDir(cfg.Audio.TempDir),
		)
	}
	if a.summarizer == nil && providers.LLM != nil {
		a.summarizer = summarize.New(providers.LLM,
			summarize.WithMaxTokens(cfg.Summarizer.MaxTokens),
			summarize.WithMinWords(cfg.Summarizer.MinWords),
			summarize.WithMaxInputChars(cfg.Summarizer.MaxInputChars),
			summarize.WithMaxInputTokens(cfg.Summarizer.MaxInputTokens),
		)
	}

	a.jobs = semaphore.NewWeighted(int64(max(1, cfg.Server.MaxConcurrentJobs)))

	// The native whisper provider holds a loaded model.
	if c, ok := providers.STT.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	hints, exact, gated := a.Pipeline().Sizes()
	slog.Info("app initialised",
		"channels", dir.Len(),
		"hint_comparisons", hints,
		"exact_corrections", exact,
		"context_corrections", gated,
		"summaries", a.SummariesAvailable(),
		"max_concurrent_jobs", max(1, cfg.Server.MaxConcurrentJobs),
	)
	return a, nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Directory returns the current channel directory.
func (a *App) Directory() *channels.Directory { return a.directory.Load() }

// Pipeline returns the current correction pipeline.
func (a *App) Pipeline() *transcript.CorrectionPipeline { return a.pipeline.Load() }

// Channels returns the configured channels in display order.
func (a *App) Channels() []channels.Channel { return a.Directory().All() }

// SummariesAvailable reports whether a summarization model is configured.
func (a *App) SummariesAvailable() bool { return a.summarizer != nil }

// ─── Operations ──────────────────────────────────────────────────────────────

// ListVideos returns the most recent videos of the named channel.
func (a *App) ListVideos(ctx context.Context, channel string) ([]youtube.Video, error) {
	ch, ok := a.Directory().Lookup(channel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	videos, err := a.resolver.ListRecentVideos(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("app: list videos of %q: %w", channel, err)
	}
	return videos, nil
}

// HandleTranscribe runs one transcription job: acquire the audio, transcribe
// it, correct the transcript and optionally summarize it. Audio artifacts are
// removed before HandleTranscribe returns, on every path. Jobs beyond
// server.max_concurrent_jobs wait for a free slot or for ctx to end.
func (a *App) HandleTranscribe(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	jobID := uuid.NewString()

	ctx, span := observe.StartSpan(ctx, "app.transcribe")
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx).With("job", jobID, "channel", req.Channel, "video", req.VideoID)
	// Unknown names stay out of metric labels.
	label := "unknown"
	defer func() {
		a.metrics.RecordTranscription(ctx, label, jobStatus(err), time.Since(start))
		if err != nil {
			log.Warn("transcription failed", "err", err, "elapsed", time.Since(start))
		}
	}()

	ch, ok := a.Directory().Lookup(req.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, req.Channel)
	}
	label = ch.Name
	if req.Summarize {
		if !ch.Summarize {
			return nil, fmt.Errorf("%w: %q", ErrSummaryNotOffered, ch.Name)
		}
		if a.summarizer == nil {
			return nil, ErrSummarizerUnavailable
		}
	}
	videoID, err := youtube.ParseVideoID(req.VideoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVideo, err)
	}

	if err := a.jobs.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("app: wait for job slot: %w", err)
	}
	defer a.jobs.Release(1)
	a.metrics.ActiveJobs.Add(ctx, 1)
	defer a.metrics.ActiveJobs.Add(context.WithoutCancel(ctx), -1)

	log.Info("transcription started", "summarize", req.Summarize)

	pipeline := a.Pipeline()
	videoURL := youtube.VideoURL(videoID)
	tr, err := a.transcribe(ctx, videoURL, pipeline.Keywords())
	if err != nil {
		return nil, err
	}

	corrected := a.correct(ctx, pipeline, tr.Text)

	res = &Result{
		JobID:         jobID,
		Channel:       ch.Name,
		VideoID:       videoID,
		VideoURL:      videoURL,
		Raw:           tr.Text,
		Text:          corrected.Corrected,
		Corrections:   corrected.Corrections,
		Language:      tr.Language,
		AudioDuration: tr.Duration,
	}

	if req.Summarize {
		summary, err := a.summarize(ctx, corrected.Corrected)
		if err != nil {
			return nil, err
		}
		res.Summary = summary
	}

	res.Elapsed = time.Since(start)
	log.Info("transcription finished",
		"chars", len(corrected.Corrected),
		"corrections", len(corrected.Corrections),
		"summary", res.Summary != "",
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// transcribe downloads the audio of videoURL and runs speech-to-text on it.
// The audio artifact is removed before transcribe returns.
func (a *App) transcribe(ctx context.Context, videoURL string, keywords []string) (_ *stt.Transcript, err error) {
	t0 := time.Now()
	dlCtx, dlSpan := observe.StartSpan(ctx, "audio.fetch")
	audio, err := a.acquirer.FetchAudio(dlCtx, videoURL)
	observe.EndSpan(dlSpan, err)
	observe.ObserveStage(ctx, a.metrics.DownloadDuration, time.Since(t0))
	if err != nil {
		return nil, fmt.Errorf("app: fetch audio: %w", err)
	}
	defer func() {
		if cerr := audio.Close(); cerr != nil {
			observe.Logger(ctx).Warn("failed to remove audio artifacts", "path", audio.Path, "err", cerr)
		}
	}()

	name := a.providers.STTName
	t1 := time.Now()
	sttCtx, sttSpan := observe.StartSpan(ctx, "stt.transcribe")
	defer func() { observe.EndSpan(sttSpan, err) }()
	tr, err := a.providers.STT.Transcribe(sttCtx, stt.Request{
		AudioPath: audio.Path,
		Language:  a.cfg.Providers.STT.OptString("language"),
		Keywords:  keywords,
	})
	observe.ObserveStage(ctx, a.metrics.STTDuration, time.Since(t1), observe.Attr("provider", name))
	if err != nil {
		a.metrics.RecordProviderRequest(ctx, name, "stt", observe.StatusError)
		a.metrics.RecordProviderError(ctx, name, "stt")
		return nil, fmt.Errorf("app: transcribe: %w", err)
	}
	a.metrics.RecordProviderRequest(ctx, name, "stt", observe.StatusOK)
	return tr, nil
}

func (a *App) correct(ctx context.Context, p *transcript.CorrectionPipeline, text string) *transcript.CorrectedTranscript {
	t0 := time.Now()
	out := p.Correct(text)
	observe.ObserveStage(ctx, a.metrics.CorrectionDuration, time.Since(t0))

	perMethod := make(map[string]int, 3)
	for _, c := range out.Corrections {
		perMethod[c.Method] += c.Occurrences
	}
	for method, n := range perMethod {
		a.metrics.RecordCorrections(ctx, method, n)
	}
	return out
}

func (a *App) summarize(ctx context.Context, text string) (_ string, err error) {
	name := a.providers.LLMName
	t0 := time.Now()
	ctx, span := observe.StartSpan(ctx, "llm.summarize")
	defer func() { observe.EndSpan(span, err) }()

	summary, err := a.summarizer.Summarize(ctx, text)
	observe.ObserveStage(ctx, a.metrics.LLMDuration, time.Since(t0), observe.Attr("provider", name))
	if err != nil {
		a.metrics.RecordProviderRequest(ctx, name, "llm", observe.StatusError)
		a.metrics.RecordProviderError(ctx, name, "llm")
		return "", fmt.Errorf("app: %w", err)
	}
	a.metrics.RecordProviderRequest(ctx, name, "llm", observe.StatusOK)
	return summary, nil
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable parts of cfg: the channel directory and
// the correction tables. Jobs already running keep the pipeline they
// started with. On error nothing is replaced.
func (a *App) Reload(cfg *config.Config, d config.Diff) error {
	var dir *channels.Directory
	if d.ChannelsChanged {
		var err error
		if dir, err = cfg.Directory(); err != nil {
			return fmt.Errorf("app: reload: %w", err)
		}
	}
	if dir != nil {
		a.directory.Store(dir)
		slog.Info("channel directory reloaded",
			"channels", dir.Names(),
			"added", d.AddedChannels,
			"removed", d.RemovedChannels,
		)
	}
	if d.CorrectionsChanged {
		p := cfg.Corrections.Pipeline()
		a.pipeline.Store(p)
		hints, exact, gated := p.Sizes()
		slog.Info("correction tables reloaded",
			"hint_comparisons", hints,
			"exact_corrections", exact,
			"context_corrections", gated,
			"threshold", p.Threshold(),
		)
	}
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases provider resources. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// jobStatus maps a job error to the status label of the request counter.
func jobStatus(err error) string {
	switch {
	case err == nil:
		return observe.StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observe.StatusCanceled
	default:
		return observe.StatusError
	}
}
