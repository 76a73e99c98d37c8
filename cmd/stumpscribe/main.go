// Command stumpscribe transcribes recent uploads of a fixed set of political
// YouTube channels, corrects recurring misrecognitions of names and terms,
// and optionally summarizes the result.
//
// Without -channel it serves the web interface:
//
//	stumpscribe -config config.yaml
//
// With -channel it runs once on the command line:
//
//	stumpscribe -channel "Kamala Harris" -list
//	stumpscribe -channel "2WAY with Mark Halperin" -video dQw4w9WgXcQ -summarize
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/stumpscribe/internal/app"
	"github.com/MrWong99/stumpscribe/internal/config"
	"github.com/MrWong99/stumpscribe/internal/health"
	"github.com/MrWong99/stumpscribe/internal/media"
	"github.com/MrWong99/stumpscribe/internal/observe"
	"github.com/MrWong99/stumpscribe/internal/web"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	channel := flag.String("channel", "", "channel name; runs once on the command line instead of serving")
	video := flag.String("video", "", "video id or URL to transcribe (requires -channel)")
	summarize := flag.Bool("summarize", false, "also summarize the transcript (with -video)")
	list := flag.Bool("list", false, "list the channel's recent videos (with -channel)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, fromFile, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stumpscribe: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("stumpscribe starting",
		"version", version,
		"config", *configPath,
		"config_file", fromFile,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telCfg := observe.ProviderConfig{ServiceVersion: version}
	if cfg.Server.LogSpans {
		telCfg.SpanLogger = slog.Default()
	}
	tel, err := observe.InitProvider(ctx, telCfg)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	if *channel != "" {
		return runOnce(ctx, application, *channel, *video, *summarize, *list)
	}
	if *video != "" || *list {
		fmt.Fprintln(os.Stderr, "stumpscribe: -video and -list require -channel")
		return 2
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	fmt.Println(renderStartupSummary(cfg, application.Pipeline(), application.Directory()))

	// ── Config hot reload ─────────────────────────────────────────────────────
	if fromFile {
		w, err := config.NewWatcher(*configPath, cfg, func(_, newCfg *config.Config, d config.Diff) {
			if d.LogLevelChanged {
				level.Set(slogLevel(d.NewLogLevel))
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			if err := application.Reload(newCfg, d); err != nil {
				slog.Error("config reload failed", "err", err)
			}
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	// ── Web server ────────────────────────────────────────────────────────────
	srv, err := web.New(application,
		web.WithHealth(health.New(readinessChecks(cfg)...)),
		web.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		slog.Error("failed to build web server", "err", err)
		return 1
	}

	var certFile, keyFile string
	if tls := cfg.Server.TLS; tls != nil {
		certFile, keyFile = tls.CertFile, tls.KeyFile
	}

	slog.Info("server ready, press Ctrl+C to shut down", "listen_addr", cfg.Server.ListenAddr)
	if err := srv.Run(ctx, cfg.Server.ListenAddr, certFile, keyFile, shutdownTimeout); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads path. A missing file selects the built-in defaults so the
// binary works out of the box; fromFile reports which case applied.
func loadConfig(path string) (cfg *config.Config, fromFile bool, err error) {
	cfg, err = config.Load(path)
	switch {
	case err == nil:
		return cfg, true, nil
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stderr, "stumpscribe: config file %q not found, using built-in defaults\n", path)
		cfg = config.Default()
		if err := config.Validate(cfg); err != nil {
			return nil, false, err
		}
		return cfg, false, nil
	default:
		return nil, false, err
	}
}

// runOnce implements the command-line mode.
func runOnce(ctx context.Context, a *app.App, channel, video string, summarize, list bool) int {
	if list || video == "" {
		videos, err := a.ListVideos(ctx, channel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(renderVideos(channel, videos))
		if video == "" {
			return 0
		}
	}

	res, err := a.HandleTranscribe(ctx, app.Request{
		Channel:   channel,
		VideoID:   video,
		Summarize: summarize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(os.Stdout, res)
	return 0
}

// readinessChecks returns the /readyz checkers for cfg.
func readinessChecks(cfg *config.Config) []health.Checker {
	checks := []health.Checker{
		{Name: "ffmpeg", Check: media.NewConverter(cfg.Audio.FFmpegPath).Check},
		{
			Name:     "youtube",
			Check:    health.Configured(cfg.YouTube.APIKey != "", "no YouTube Data API key; enter video ids manually"),
			Optional: true,
		},
	}
	stt := cfg.Providers.STT
	switch stt.Name {
	case "whisper":
		checks = append(checks, health.Checker{
			Name:  "stt",
			Check: health.Reachable(&http.Client{Timeout: 3 * time.Second}, stt.BaseURL),
		})
	case "openai":
		checks = append(checks, health.Checker{
			Name:  "stt",
			Check: health.Configured(stt.APIKey != "", "no OpenAI API key"),
		})
	}
	if llm := cfg.Providers.LLM; llm.Name != "" {
		checks = append(checks, health.Checker{
			Name:     "llm",
			Check:    health.Configured(llm.Model != "", "no summarization model"),
			Optional: true,
		})
	}
	return checks
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
