package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/stumpscribe/pkg/provider/llm"
)

const chatResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Gallego discussed water policy."}
  }],
  "usage": {"prompt_tokens": 40, "completion_tokens": 6, "total_tokens": 46}
}`

func TestConvertMessage_Roles(t *testing.T) {
	t.Parallel()

	sys, err := convertMessage(llm.Message{Role: llm.RoleSystem, Content: "You are helpful."})
	if err != nil || sys.OfSystem == nil {
		t.Errorf("system: OfSystem=%v err=%v", sys.OfSystem, err)
	}
	usr, err := convertMessage(llm.Message{Role: llm.RoleUser, Content: "Hello!"})
	if err != nil || usr.OfUser == nil {
		t.Errorf("user: OfUser=%v err=%v", usr.OfUser, err)
	}
	asst, err := convertMessage(llm.Message{Role: llm.RoleAssistant, Content: "Hi!", Name: "bot"})
	if err != nil || asst.OfAssistant == nil {
		t.Fatalf("assistant: OfAssistant=%v err=%v", asst.OfAssistant, err)
	}
}

func TestConvertMessage_UnknownRole(t *testing.T) {
	t.Parallel()
	if _, err := convertMessage(llm.Message{Role: "tool", Content: "x"}); err == nil {
		t.Fatal("expected error for unsupported role, got nil")
	}
}

func TestModelCapabilities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model         string
		contextWindow int
	}{
		{"gpt-4o-mini", 128_000},
		{"gpt-4o", 128_000},
		{"gpt-4", 8_192},
		{"gpt-3.5-turbo", 16_385},
		{"o3-mini", 200_000},
		{"my-custom-model", 128_000},
	}
	for _, tt := range tests {
		caps := modelCapabilities(tt.model)
		if caps.ContextWindow != tt.contextWindow {
			t.Errorf("%s: ContextWindow=%d, want %d", tt.model, caps.ContextWindow, tt.contextWindow)
		}
		if caps.MaxOutputTokens <= 0 {
			t.Errorf("%s: MaxOutputTokens=%d, want > 0", tt.model, caps.MaxOutputTokens)
		}
	}
}

func TestCountTokens_Estimation(t *testing.T) {
	t.Parallel()
	p := &Provider{model: "gpt-4o"}
	// 11 chars → 3 tokens + 4 overhead.
	count, err := p.CountTokens([]llm.Message{{Role: llm.RoleUser, Content: "Hello world"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("count=%d, want 7", count)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("sk-test", "gpt-4o", WithBaseURL("https://custom.example.com"), WithOrganization("org-123")); err != nil {
		t.Errorf("unexpected error with valid options: %v", err)
	}
}

func TestComplete_SendsDeterministicRequest(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse)
	}))
	t.Cleanup(srv.Close)

	p, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "Summarise.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "long transcript"}},
		Temperature:  0,
		MaxTokens:    150,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Gallego discussed water policy." {
		t.Errorf("Content=%q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason=%q, want stop", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 46 {
		t.Errorf("TotalTokens=%d, want 46", resp.Usage.TotalTokens)
	}

	temp, ok := body["temperature"]
	if !ok {
		t.Fatal("temperature not sent; zero must be explicit")
	}
	if temp.(float64) != 0 {
		t.Errorf("temperature=%v, want 0", temp)
	}
	if mt, _ := body["max_completion_tokens"].(float64); mt != 150 {
		t.Errorf("max_completion_tokens=%v, want 150", body["max_completion_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("len(messages)=%d, want 2", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("messages[0].role=%v, want system", first["role"])
	}
}

func TestComplete_NoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	p, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	if err == nil {
		t.Fatal("expected error on 503, got nil")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}
