package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/summarize"
)

// Built-in defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr        = ":7860"
	DefaultMaxConcurrentJobs = 1
	DefaultMaxResults        = 10
	DefaultFFmpegPath        = "ffmpeg"
	DefaultSTTProvider       = "whisper"
	DefaultWhisperURL        = "http://localhost:8080"
)

// Environment variables consulted when the file leaves a key empty.
const (
	EnvYouTubeAPIKey = "YOUTUBE_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "whisper-native", "openai", "mock"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Default returns a configuration with every default applied and no file
// behind it. Environment overrides are applied as well.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. An empty document yields
// the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero-valued setting that has a default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxConcurrentJobs == 0 {
		cfg.Server.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if cfg.YouTube.MaxResults == 0 {
		cfg.YouTube.MaxResults = DefaultMaxResults
	}
	if cfg.Audio.FFmpegPath == "" {
		cfg.Audio.FFmpegPath = DefaultFFmpegPath
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = DefaultSTTProvider
		if cfg.Providers.STT.BaseURL == "" {
			cfg.Providers.STT.BaseURL = DefaultWhisperURL
		}
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = summarize.DefaultMaxTokens
	}
	if cfg.Summarizer.MinWords == 0 {
		cfg.Summarizer.MinWords = summarize.DefaultMinWords
	}
	if cfg.Summarizer.MaxInputChars == 0 {
		cfg.Summarizer.MaxInputChars = summarize.DefaultMaxInputChars
	}
	if cfg.Summarizer.MaxInputTokens == 0 {
		cfg.Summarizer.MaxInputTokens = summarize.DefaultMaxInputTokens
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = channels.Defaults()
	}
}

// applyEnv fills API keys the file leaves empty from the environment.
func applyEnv(cfg *Config) {
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = os.Getenv(EnvYouTubeAPIKey)
	}
	for _, e := range []*ProviderEntry{&cfg.Providers.STT, &cfg.Providers.LLM} {
		if e.Name == "openai" && e.APIKey == "" {
			e.APIKey = os.Getenv(EnvOpenAIAPIKey)
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxConcurrentJobs < 0 {
		errs = append(errs, fmt.Errorf("server.max_concurrent_jobs %d must not be negative", cfg.Server.MaxConcurrentJobs))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// YouTube
	if n := cfg.YouTube.MaxResults; n < 0 || n > 50 {
		errs = append(errs, fmt.Errorf("youtube.max_results %d is out of range [1, 50]", n))
	}
	if cfg.YouTube.APIKey == "" {
		slog.Warn("youtube.api_key is empty; channel listings are disabled", "env", EnvYouTubeAPIKey)
	}

	// Channels
	if _, err := channels.New(cfg.Channels); err != nil {
		errs = append(errs, err)
	}

	// Providers
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	if cfg.Providers.STT.Name == "whisper" && cfg.Providers.STT.BaseURL == "" {
		errs = append(errs, errors.New("providers.stt.base_url is required for the whisper provider"))
	}
	if cfg.Providers.STT.Name == "whisper-native" && cfg.Providers.STT.Model == "" && cfg.Providers.STT.OptString("model_path") == "" {
		errs = append(errs, errors.New("providers.stt.model (model file path) is required for the whisper-native provider"))
	}
	if cfg.Providers.LLM.Name != "" && cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required when providers.llm.name is set"))
	}
	if cfg.Providers.LLM.Name == "" {
		for _, ch := range cfg.Channels {
			if ch.Summarize {
				slog.Warn("no LLM provider configured; summaries will not be available", "channel", ch.Name)
				break
			}
		}
	}

	// Summarizer
	if cfg.Summarizer.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("summarizer.max_tokens %d must not be negative", cfg.Summarizer.MaxTokens))
	}
	if cfg.Summarizer.MinWords < 0 {
		errs = append(errs, fmt.Errorf("summarizer.min_words %d must not be negative", cfg.Summarizer.MinWords))
	}
	if cfg.Summarizer.MaxInputChars < 0 {
		errs = append(errs, fmt.Errorf("summarizer.max_input_chars %d must not be negative", cfg.Summarizer.MaxInputChars))
	}
	if cfg.Summarizer.MaxInputTokens < 0 {
		errs = append(errs, fmt.Errorf("summarizer.max_input_tokens %d must not be negative", cfg.Summarizer.MaxInputTokens))
	}

	// Corrections
	if t := cfg.Corrections.Threshold; t != nil && (*t < 0 || *t > 100) {
		errs = append(errs, fmt.Errorf("corrections.threshold %d is out of range [0, 100]", *t))
	}
	if cfg.Corrections.Exact != nil {
		if _, ok := cfg.Corrections.Exact.Get(""); ok {
			slog.Warn("corrections.exact contains an empty key; it will be ignored")
		}
	}
	if cfg.Corrections.Context != nil {
		for p := cfg.Corrections.Context.Oldest(); p != nil; p = p.Next() {
			if len(p.Value.Terms) == 0 {
				slog.Warn("context correction has no terms and will never fire", "wrong", p.Key)
			}
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
