package stt_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/stumpscribe/pkg/provider/stt"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"  hello world ", "hello world"},
		{"[BLANK_AUDIO]", ""},
		{"good evening [BLANK_AUDIO]", "good evening"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stt.CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinSegments(t *testing.T) {
	t.Parallel()

	segs := []stt.Segment{
		{Text: " Good evening."},
		{Text: "[BLANK_AUDIO]"},
		{Text: "Thanks for joining us. "},
	}
	if got, want := stt.JoinSegments(segs), "Good evening. Thanks for joining us."; got != want {
		t.Errorf("JoinSegments = %q, want %q", got, want)
	}
	if got := stt.JoinSegments(nil); got != "" {
		t.Errorf("JoinSegments(nil) = %q, want empty", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	if got := stt.BuildPrompt(nil); got != "" {
		t.Errorf("BuildPrompt(nil) = %q, want empty", got)
	}
	if got := stt.BuildPrompt([]string{" Kari Lake ", "", "Economy"}); got != "Kari Lake, Economy" {
		t.Errorf("BuildPrompt = %q", got)
	}

	many := make([]string, 200)
	for i := range many {
		many[i] = "word"
	}
	if n := len(strings.Split(stt.BuildPrompt(many), ", ")); n != stt.MaxPromptWords {
		t.Errorf("BuildPrompt kept %d keywords, want %d", n, stt.MaxPromptWords)
	}

	// A multi-word keyword that would cross the cap is dropped whole.
	long := append(many[:stt.MaxPromptWords-1:stt.MaxPromptWords-1], "Mark Halperin")
	if got := stt.BuildPrompt(long); strings.Contains(got, "Halperin") {
		t.Error("keyword crossing the word cap was kept")
	}
}
