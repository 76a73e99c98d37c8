package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// workDirPrefix names every request-scoped temp directory.
const workDirPrefix = "stumpscribe-"

// WorkDir is a request-scoped temp directory. Remove deletes it and
// everything inside; it is idempotent.
type WorkDir struct {
	// Path is the absolute directory path.
	Path string

	once sync.Once
	err  error
}

// NewWorkDir creates a fresh directory below base, or below the system temp
// directory when base is empty. The directory name embeds a random UUID so
// concurrent requests never collide.
func NewWorkDir(base string) (*WorkDir, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("media: create temp root: %w", err)
	}
	path := filepath.Join(base, workDirPrefix+uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("media: create work dir: %w", err)
	}
	return &WorkDir{Path: path}, nil
}

// File returns the path of name inside the directory.
func (w *WorkDir) File(name string) string {
	return filepath.Join(w.Path, name)
}

// Remove deletes the directory tree.
func (w *WorkDir) Remove() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Path); err != nil {
			w.err = fmt.Errorf("media: remove work dir: %w", err)
			slog.Warn("failed to remove temp audio", "dir", w.Path, "err", err)
		}
	})
	return w.err
}

// AudioFile is a converted WAV artifact living in its own [WorkDir].
type AudioFile struct {
	// Path is the WAV file location.
	Path string

	// Source identifies where the audio came from (usually the video URL).
	Source string

	dir *WorkDir
}

// NewAudioFile ties the WAV at path to dir so Close removes both.
func NewAudioFile(path, source string, dir *WorkDir) *AudioFile {
	return &AudioFile{Path: path, Source: source, dir: dir}
}

// Close deletes the artifact and its directory. Safe to call more than once.
func (a *AudioFile) Close() error {
	if a == nil || a.dir == nil {
		return nil
	}
	return a.dir.Remove()
}
