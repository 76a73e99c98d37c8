// Package media converts downloaded audio streams into the WAV artifacts the
// transcriber consumes and owns their request-scoped temp directories.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Target format for every transcription input.
const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16
)

// DefaultFFmpeg is the binary looked up on PATH when no path is configured.
const DefaultFFmpeg = "ffmpeg"

// Converter shells out to ffmpeg.
type Converter struct {
	binary string
}

// NewConverter returns a Converter that runs binary. An empty binary selects
// [DefaultFFmpeg].
func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = DefaultFFmpeg
	}
	return &Converter{binary: binary}
}

// Binary returns the configured ffmpeg path or name.
func (c *Converter) Binary() string { return c.binary }

// Check reports whether the ffmpeg binary can be found.
func (c *Converter) Check(context.Context) error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("media: ffmpeg not found: %w", err)
	}
	return nil
}

// ToWAV converts the audio track of source into a mono 16 kHz signed 16-bit
// PCM WAV file at dest, overwriting dest if it exists.
func (c *Converter) ToWAV(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return errors.New("media: source and dest must not be empty")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dest,
	}
	cmd := exec.CommandContext(ctx, c.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("media: ffmpeg convert: %w: %s", err, strings.TrimSpace(string(output)))
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("media: ffmpeg produced no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("media: ffmpeg produced an empty file %s", dest)
	}
	return nil
}
