package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
	sttopenai "github.com/MrWong99/stumpscribe/pkg/provider/stt/openai"
)

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := sttopenai.New("", "whisper-1"); err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

func TestTranscribe_SendsMultipartRequest(t *testing.T) {
	t.Parallel()

	type seen struct {
		path, model, language, prompt, format string
	}
	got := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got <- seen{
			path:     r.URL.Path,
			model:    r.FormValue("model"),
			language: r.FormValue("language"),
			prompt:   r.FormValue("prompt"),
			format:   r.FormValue("response_format"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": " Kerry Lake spoke in Phoenix. "})
	}))
	t.Cleanup(srv.Close)

	p, err := sttopenai.New("sk-test", "", sttopenai.WithBaseURL(srv.URL+"/v1/"), sttopenai.WithLanguage("en"))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := p.Transcribe(context.Background(), stt.Request{
		AudioPath: writeAudio(t, "RIFF"),
		Keywords:  []string{"Kari Lake"},
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "Kerry Lake spoke in Phoenix." {
		t.Errorf("Text = %q", tr.Text)
	}

	s := <-got
	if s.path != "/v1/audio/transcriptions" {
		t.Errorf("path = %q, want /v1/audio/transcriptions", s.path)
	}
	if s.model != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", s.model)
	}
	if s.language != "en" {
		t.Errorf("language = %q, want en", s.language)
	}
	if s.prompt != "Kari Lake" {
		t.Errorf("prompt = %q, want Kari Lake", s.prompt)
	}
	if s.format != "json" {
		t.Errorf("response_format = %q, want json", s.format)
	}
}

func TestTranscribe_NoRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	t.Cleanup(srv.Close)

	p, _ := sttopenai.New("sk-test", "whisper-1", sttopenai.WithBaseURL(srv.URL))
	if _, err := p.Transcribe(context.Background(), stt.Request{AudioPath: writeAudio(t, "RIFF")}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want exactly 1", n)
	}
}

func TestTranscribe_EmptyFile(t *testing.T) {
	t.Parallel()

	p, _ := sttopenai.New("sk-test", "whisper-1", sttopenai.WithBaseURL("http://127.0.0.1:1"))
	_, err := p.Transcribe(context.Background(), stt.Request{AudioPath: writeAudio(t, "")})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Fatalf("err = %v, want stt.ErrEmptyAudio", err)
	}
}
