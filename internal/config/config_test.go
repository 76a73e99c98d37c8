package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/config"
	"github.com/MrWong99/stumpscribe/pkg/provider/llm"
	llmmock "github.com/MrWong99/stumpscribe/pkg/provider/llm/mock"
	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
	sttmock "github.com/MrWong99/stumpscribe/pkg/provider/stt/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
  max_concurrent_jobs: 2
  log_spans: true

youtube:
  api_key: yt-test
  max_results: 5

channels:
  - name: Ruben Gallego
    id: UCxggVFesZy65a0WBT3_roXQ
  - name: 2WAY with Mark Halperin
    id: UCq7OKQb6_1tbA73oSloIiZQ
    summarize: true

audio:
  ffmpeg_path: /usr/bin/ffmpeg
  temp_dir: /var/tmp/stumpscribe

providers:
  stt:
    name: openai
    api_key: sk-test
    model: whisper-1
    options:
      language: en
      timeout_seconds: 600
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini

summarizer:
  max_tokens: 200
  min_words: 40
  max_input_chars: 4096
  max_input_tokens: 1024

corrections:
  threshold: 90
  phrase_hints:
    Mark Kelly: [Mark Kelly, Marc Kelly]
  exact:
    Tammy Baldwinn: Tammy Baldwin
  context:
    Bob Casey Junior:
      replacement: Bob Casey Jr.
      terms: [Pennsylvania, Senator]
`

// ── LoadFromReader ───────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" || cfg.Server.LogLevel != config.LogDebug || cfg.Server.MaxConcurrentJobs != 2 || !cfg.Server.LogSpans {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.YouTube.APIKey != "yt-test" || cfg.YouTube.MaxResults != 5 {
		t.Errorf("youtube = %+v", cfg.YouTube)
	}
	if len(cfg.Channels) != 2 || !cfg.Channels[1].Summarize {
		t.Errorf("channels = %+v", cfg.Channels)
	}
	if cfg.Audio.FFmpegPath != "/usr/bin/ffmpeg" || cfg.Audio.TempDir != "/var/tmp/stumpscribe" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Providers.STT.OptString("language") != "en" {
		t.Errorf("stt language option = %q", cfg.Providers.STT.OptString("language"))
	}
	if cfg.Providers.STT.OptInt("timeout_seconds") != 600 {
		t.Errorf("stt timeout option = %d", cfg.Providers.STT.OptInt("timeout_seconds"))
	}
	if cfg.Summarizer.MaxTokens != 200 || cfg.Summarizer.MinWords != 40 || cfg.Summarizer.MaxInputChars != 4096 || cfg.Summarizer.MaxInputTokens != 1024 {
		t.Errorf("summarizer = %+v", cfg.Summarizer)
	}

	c := cfg.Corrections
	if c.Threshold == nil || *c.Threshold != 90 {
		t.Errorf("threshold = %v", c.Threshold)
	}
	if v, ok := c.PhraseHints.Get("Mark Kelly"); !ok || len(v) != 2 || v[1] != "Marc Kelly" {
		t.Errorf("phrase_hints[Mark Kelly] = %v, %v", v, ok)
	}
	if v, _ := c.Exact.Get("Tammy Baldwinn"); v != "Tammy Baldwin" {
		t.Errorf("exact[Tammy Baldwinn] = %q", v)
	}
	rule, ok := c.Context.Get("Bob Casey Junior")
	if !ok || rule.Replacement != "Bob Casey Jr." || len(rule.Terms) != 2 {
		t.Errorf("context[Bob Casey Junior] = %+v, %v", rule, ok)
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	t.Setenv(config.EnvYouTubeAPIKey, "")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should be valid, got: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Server.MaxConcurrentJobs != 1 {
		t.Errorf("max_concurrent_jobs = %d", cfg.Server.MaxConcurrentJobs)
	}
	if cfg.YouTube.MaxResults != 10 {
		t.Errorf("max_results = %d", cfg.YouTube.MaxResults)
	}
	if len(cfg.Channels) != 9 {
		t.Errorf("len(channels) = %d, want 9 defaults", len(cfg.Channels))
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.BaseURL != config.DefaultWhisperURL {
		t.Errorf("stt = %+v", cfg.Providers.STT)
	}
	if cfg.Summarizer.MaxTokens != 150 || cfg.Summarizer.MinWords != 30 || cfg.Summarizer.MaxInputChars != 2048 || cfg.Summarizer.MaxInputTokens != 512 {
		t.Errorf("summarizer = %+v", cfg.Summarizer)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvYouTubeAPIKey, "yt-env")
	t.Setenv(config.EnvOpenAIAPIKey, "sk-env")

	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  stt:
    name: openai
  llm:
    name: openai
    model: gpt-4o-mini
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.YouTube.APIKey != "yt-env" {
		t.Errorf("youtube.api_key = %q, want env value", cfg.YouTube.APIKey)
	}
	if cfg.Providers.STT.APIKey != "sk-env" || cfg.Providers.LLM.APIKey != "sk-env" {
		t.Errorf("openai keys = %q / %q, want env value", cfg.Providers.STT.APIKey, cfg.Providers.LLM.APIKey)
	}

	// A key in the file wins over the environment.
	cfg, err = config.LoadFromReader(strings.NewReader("youtube:\n  api_key: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.YouTube.APIKey != "from-file" {
		t.Errorf("youtube.api_key = %q, want from-file", cfg.YouTube.APIKey)
	}
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "server:\n  log_level: bananas\n", "log_level"},
		{"negative jobs", "server:\n  max_concurrent_jobs: -1\n", "max_concurrent_jobs"},
		{"tls incomplete", "server:\n  tls:\n    cert_file: a.pem\n", "tls"},
		{"max results", "youtube:\n  max_results: 51\n", "max_results"},
		{"threshold", "corrections:\n  threshold: 101\n", "threshold"},
		{"duplicate channel", "channels:\n  - {name: A, id: UC1}\n  - {name: A, id: UC2}\n", "duplicate"},
		{"channel without id", "channels:\n  - {name: A}\n", "id must not be empty"},
		{"whisper without url", "providers:\n  stt:\n    name: whisper\n    model: x\n", "base_url"},
		{"native without model", "providers:\n  stt:\n    name: whisper-native\n", "whisper-native"},
		{"llm without model", "providers:\n  llm:\n    name: openai\n    api_key: k\n", "providers.llm.model"},
		{"negative summary tokens", "summarizer:\n  max_tokens: -5\n", "max_tokens"},
		{"negative input tokens", "summarizer:\n  max_input_tokens: -1\n", "max_input_tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: loud
corrections:
  threshold: -1
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "threshold") {
		t.Errorf("error should list both failures, got: %v", err)
	}
}

// ── Corrections ──────────────────────────────────────────────────────────────

func TestCorrectionsConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	tables := cfg.Corrections.Tables()
	if tables.Hints.Len() != 26 {
		t.Errorf("hints len = %d, want 25 defaults + 1", tables.Hints.Len())
	}
	if tables.Exact.Len() != 3 {
		t.Errorf("exact len = %d, want 2 defaults + 1", tables.Exact.Len())
	}
	if tables.Context.Len() != 2 {
		t.Errorf("context len = %d, want 1 default + 1", tables.Context.Len())
	}

	p := cfg.Corrections.Pipeline()
	if p.Threshold() != 90 {
		t.Errorf("pipeline threshold = %d, want 90", p.Threshold())
	}
	got := p.Correct("Tammy Baldwinn and Donald Drumpf").Corrected
	if want := "Tammy Baldwin and Donald Trump"; got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
}

func TestCorrectionsConfig_ReplaceDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(`
corrections:
  replace_defaults: true
  exact:
    foo: bar
`))
	if err != nil {
		t.Fatal(err)
	}
	p := cfg.Corrections.Pipeline()
	hints, exact, context := p.Sizes()
	if hints != 0 || exact != 1 || context != 0 {
		t.Errorf("Sizes() = (%d, %d, %d), want (0, 1, 0)", hints, exact, context)
	}
	if p.Threshold() != 85 {
		t.Errorf("threshold = %d, want default 85", p.Threshold())
	}
	if got := p.Correct("Donald Drumpf foo").Corrected; got != "Donald Drumpf bar" {
		t.Errorf("Correct = %q", got)
	}
}

func TestCorrectionsConfig_ZeroThresholdIsHonoured(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("corrections:\n  threshold: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Corrections.Threshold == nil {
		t.Fatal("threshold: 0 decoded as unset")
	}
	if got := cfg.Corrections.Pipeline().Threshold(); got != 0 {
		t.Errorf("pipeline threshold = %d, want 0", got)
	}
}

func TestConfig_Directory(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	d, err := cfg.Directory()
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 9 {
		t.Errorf("Len() = %d, want 9", d.Len())
	}
	if _, ok := d.Lookup("Kamala Harris"); !ok {
		t.Error("default directory misses Kamala Harris")
	}
}

func TestConfig_DirectoryEmptyListUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Channels = nil
	d, err := cfg.Directory()
	if err != nil {
		t.Fatal(err)
	}
	names := d.Names()
	if len(names) != len(channels.Defaults()) || names[0] != "Ruben Gallego" {
		t.Errorf("Names() = %v, want the built-in list", names)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	var gotEntry config.ProviderEntry
	reg.RegisterSTT("mock", func(e config.ProviderEntry) (stt.Provider, error) {
		gotEntry = e
		return &sttmock.Provider{}, nil
	})
	reg.RegisterLLM("mock", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})
	reg.RegisterLLM("alpha", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	p, err := reg.CreateSTT(config.ProviderEntry{Name: "mock", Model: "m"})
	if err != nil || p == nil {
		t.Fatalf("CreateSTT = %v, %v", p, err)
	}
	if gotEntry.Model != "m" {
		t.Errorf("factory received %+v", gotEntry)
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateLLM: %v", err)
	}
	if names := reg.LLMNames(); len(names) != 2 || names[0] != "alpha" {
		t.Errorf("LLMNames() = %v, want sorted [alpha mock]", names)
	}
	if names := reg.STTNames(); len(names) != 1 || names[0] != "mock" {
		t.Errorf("STTNames() = %v", names)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	reg := config.NewRegistry()
	reg.RegisterSTT("bad", func(config.ProviderEntry) (stt.Provider, error) { return nil, boom })
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "bad"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
