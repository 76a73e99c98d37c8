package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/stumpscribe/internal/app"
	"github.com/MrWong99/stumpscribe/internal/config"
	"github.com/MrWong99/stumpscribe/pkg/provider/llm"
	"github.com/MrWong99/stumpscribe/pkg/provider/llm/anyllm"
	oallm "github.com/MrWong99/stumpscribe/pkg/provider/llm/openai"
	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
	sttmock "github.com/MrWong99/stumpscribe/pkg/provider/stt/mock"
	oastt "github.com/MrWong99/stumpscribe/pkg/provider/stt/openai"
	"github.com/MrWong99/stumpscribe/pkg/provider/stt/whisper"
)

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptString("language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, whisper.WithHTTPClient(&http.Client{Timeout: d}))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.OptString("model_path")
		}
		var opts []whisper.NativeOption
		if lang := entry.OptString("language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		if n := entry.OptInt("threads"); n > 0 {
			opts = append(opts, whisper.WithNativeThreads(uint(n)))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oastt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oastt.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.OptString("language"); lang != "" {
			opts = append(opts, oastt.WithLanguage(lang))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oastt.WithTimeout(d))
		}
		return oastt.New(entry.APIKey, entry.Model, opts...)
	})

	// mock echoes a fixed transcript; useful for exercising the UI without a
	// transcription backend.
	reg.RegisterSTT("mock", func(entry config.ProviderEntry) (stt.Provider, error) {
		text := entry.OptString("text")
		if text == "" {
			text = "Kamla Harris and Donald Drumpf talked about the econmy in Arizona"
		}
		return &sttmock.Provider{Transcript: &stt.Transcript{Text: text, Language: "en"}}, nil
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		if org := entry.OptString("organization"); org != "" {
			opts = append(opts, oallm.WithOrganization(org))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oallm.WithTimeout(d))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile and
	// ollama share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	slog.Debug("registered providers", "stt", reg.STTNames(), "llm", reg.LLMNames())
}

// buildProviders instantiates the providers named in cfg using the registry.
// The STT provider is mandatory; a missing LLM only disables summaries.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	entry := cfg.Providers.STT
	p, err := reg.CreateSTT(entry)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
	}
	ps.STT, ps.STTName = p, entry.Name
	slog.Info("provider created", "kind", "stt", "name", entry.Name)

	if entry := cfg.Providers.LLM; entry.Name != "" {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		ps.LLM, ps.LLMName = p, entry.Name
		slog.Info("provider created", "kind", "llm", "name", entry.Name)
	}
	return ps, nil
}

// optDuration reads a duration option written either as a Go duration string
// ("90s") or as a number of seconds.
func optDuration(entry config.ProviderEntry, key string) time.Duration {
	if s := entry.OptString(key); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			slog.Warn("ignoring invalid duration option", "key", key, "value", s, "err", err)
			return 0
		}
		return d
	}
	return time.Duration(entry.OptInt(key)) * time.Second
}
