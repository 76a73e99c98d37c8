// Package config provides the configuration schema, loader, hot-reload
// watcher and provider registry for the stumpscribe server.
package config

import (
	"fmt"

	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/transcript"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	YouTube     YouTubeConfig      `yaml:"youtube"`
	Channels    []channels.Channel `yaml:"channels"`
	Audio       AudioConfig        `yaml:"audio"`
	Providers   ProvidersConfig    `yaml:"providers"`
	Summarizer  SummarizerConfig   `yaml:"summarizer"`
	Corrections CorrectionsConfig  `yaml:"corrections"`
}

// ServerConfig holds network, logging and job settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the web UI listens on (e.g., ":7860").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MaxConcurrentJobs bounds how many transcriptions run at once.
	// Inference saturates the machine, so the default is 1.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// LogSpans logs every finished trace span (job stages, HTTP requests)
	// at debug level.
	LogSpans bool `yaml:"log_spans"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// YouTubeConfig configures channel listings through the Data API.
type YouTubeConfig struct {
	// APIKey authenticates Data API requests. Falls back to $YOUTUBE_API_KEY.
	APIKey string `yaml:"api_key"`

	// MaxResults caps how many recent videos are listed per channel (1-50).
	MaxResults int `yaml:"max_results"`
}

// AudioConfig configures download and conversion of audio tracks.
type AudioConfig struct {
	// FFmpegPath is the ffmpeg binary; a bare name is resolved via PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// TempDir is the root for request-scoped work directories. Empty means
	// the system temp directory.
	TempDir string `yaml:"temp_dir"`
}

// ProvidersConfig declares which provider implementation to use for each
// stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1",
	// "gpt-4o-mini") or, for whisper-native, the model file path.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// OptString extracts a string option. Returns "" if the key is absent or the
// value is not a string.
func (e ProviderEntry) OptString(key string) string {
	s, _ := e.Options[key].(string)
	return s
}

// OptInt extracts an integer option. YAML decodes whole numbers as int;
// floats are truncated. Returns 0 when absent or not numeric.
func (e ProviderEntry) OptInt(key string) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// SummarizerConfig fixes the generation parameters of the summariser.
type SummarizerConfig struct {
	// MaxTokens bounds the summary length in tokens.
	MaxTokens int `yaml:"max_tokens"`

	// MinWords is the minimum summary length requested from the model.
	MinWords int `yaml:"min_words"`

	// MaxInputChars truncates the transcript before it is sent.
	MaxInputChars int `yaml:"max_input_chars"`

	// MaxInputTokens bounds the transcript by the provider's token count
	// after the character cut.
	MaxInputTokens int `yaml:"max_input_tokens"`
}

// CorrectionsConfig extends or replaces the built-in correction tables.
type CorrectionsConfig struct {
	// Threshold is the minimum similarity (0-100) for phrase normalisation.
	// Nil selects [transcript.DefaultThreshold]; an explicit 0 is honoured.
	Threshold *int `yaml:"threshold"`

	// ReplaceDefaults discards the built-in tables instead of merging.
	ReplaceDefaults bool `yaml:"replace_defaults"`

	// PhraseHints maps canonical phrases to their spoken variants.
	PhraseHints *transcript.PhraseHints `yaml:"phrase_hints"`

	// Exact maps wrong substrings to their replacement.
	Exact *transcript.ExactTable `yaml:"exact"`

	// Context maps wrong substrings to context-gated replacements.
	Context *transcript.ContextTable `yaml:"context"`
}

// Tables returns the correction tables described by c: the configured
// entries merged over [transcript.DefaultTables], or only the configured
// entries when ReplaceDefaults is set.
func (c CorrectionsConfig) Tables() transcript.Tables {
	own := transcript.Tables{
		Hints:   c.PhraseHints,
		Exact:   c.Exact,
		Context: c.Context,
	}
	if c.ReplaceDefaults {
		return transcript.Tables{}.Merge(own)
	}
	return transcript.DefaultTables().Merge(own)
}

// Pipeline builds the correction pipeline described by c.
func (c CorrectionsConfig) Pipeline() *transcript.CorrectionPipeline {
	opts := []transcript.PipelineOption{transcript.WithTables(c.Tables())}
	if c.Threshold != nil {
		opts = append(opts, transcript.WithThreshold(*c.Threshold))
	}
	return transcript.NewPipeline(opts...)
}

// Directory builds the channel directory. An empty channel list selects
// [channels.Default].
func (c *Config) Directory() (*channels.Directory, error) {
	if len(c.Channels) == 0 {
		return channels.Default(), nil
	}
	d, err := channels.New(c.Channels)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return d, nil
}
