package media_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/MrWong99/stumpscribe/internal/media"
)

// fakeFFmpeg writes an executable shell script that stands in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConverter_ToWAV(t *testing.T) {
	t.Parallel()

	// Record the arguments and write the last one (the destination).
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeFFmpeg(t, `echo "$@" > `+argsFile+`
for last; do :; done
printf 'RIFF' > "$last"`)

	dest := filepath.Join(t.TempDir(), "audio.wav")
	c := media.NewConverter(bin)
	if err := c.ToWAV(context.Background(), "in.webm", dest); err != nil {
		t.Fatalf("ToWAV: %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(raw)
	for _, want := range []string{"-i in.webm", "-ac 1", "-ar 16000", "-c:a pcm_s16le", "-f wav"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestConverter_Failure(t *testing.T) {
	t.Parallel()

	bin := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2
exit 1`)
	err := media.NewConverter(bin).ToWAV(context.Background(), "in.webm", filepath.Join(t.TempDir(), "out.wav"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error %q does not carry ffmpeg output", err)
	}
}

func TestConverter_EmptyOutput(t *testing.T) {
	t.Parallel()

	bin := fakeFFmpeg(t, `for last; do :; done
: > "$last"`)
	if err := media.NewConverter(bin).ToWAV(context.Background(), "in", filepath.Join(t.TempDir(), "out.wav")); err == nil {
		t.Fatal("expected error for empty output, got nil")
	}
}

func TestConverter_Check(t *testing.T) {
	t.Parallel()

	if err := media.NewConverter(filepath.Join(t.TempDir(), "missing-ffmpeg")).Check(context.Background()); err == nil {
		t.Error("expected error for missing binary")
	}
	if err := media.NewConverter(fakeFFmpeg(t, "exit 0")).Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
	if got := media.NewConverter("").Binary(); got != media.DefaultFFmpeg {
		t.Errorf("Binary()=%q, want %q", got, media.DefaultFFmpeg)
	}
}

func TestWorkDir_Lifecycle(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	a, err := media.NewWorkDir(base)
	if err != nil {
		t.Fatal(err)
	}
	b, err := media.NewWorkDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Fatalf("work dirs collide: %s", a.Path)
	}

	wav := a.File("audio.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	f := media.NewAudioFile(wav, "https://www.youtube.com/watch?v=x", a)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Errorf("work dir still present after Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := os.Stat(b.Path); err != nil {
		t.Errorf("sibling work dir removed: %v", err)
	}
}

func TestAudioFile_NilClose(t *testing.T) {
	t.Parallel()

	var f *media.AudioFile
	if err := f.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
