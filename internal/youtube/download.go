package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"

	"github.com/MrWong99/stumpscribe/internal/media"
)

// ParseVideoID accepts a bare video id or a watch, short or embed URL and
// returns the video id.
func ParseVideoID(s string) (string, error) {
	id, err := kkdai.ExtractVideoID(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("youtube: parse video id %q: %w", s, err)
	}
	return id, nil
}

// ErrNoAudioFormat is returned when a video exposes no audio stream.
var ErrNoAudioFormat = errors.New("youtube: no audio format available")

// videoClient is the subset of *kkdai.Client the downloader needs.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*kkdai.Video, error)
	GetStreamContext(ctx context.Context, video *kkdai.Video, format *kkdai.Format) (io.ReadCloser, int64, error)
}

// converter turns a downloaded stream into a transcription-ready WAV.
type converter interface {
	ToWAV(ctx context.Context, source, dest string) error
}

// Acquirer downloads the audio of a single video and converts it to WAV.
type Acquirer interface {
	// FetchAudio returns a WAV artifact for videoURL. The caller owns the
	// artifact and must Close it.
	FetchAudio(ctx context.Context, videoURL string) (*media.AudioFile, error)
}

// Compile-time assertion that Downloader satisfies Acquirer.
var _ Acquirer = (*Downloader)(nil)

// DownloaderOption is a functional option for [NewDownloader].
type DownloaderOption func(*Downloader)

// WithTempDir sets the root below which request-scoped work directories are
// created. Empty means the system temp directory.
func WithTempDir(dir string) DownloaderOption {
	return func(d *Downloader) { d.tempDir = dir }
}

// WithHTTPClient replaces the HTTP client used to talk to YouTube.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = &kkdai.Client{HTTPClient: c} }
}

// WithVideoClient replaces the YouTube client entirely. Intended for tests.
func WithVideoClient(c videoClient) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// Downloader implements Acquirer with github.com/kkdai/youtube/v2 and an
// ffmpeg converter.
type Downloader struct {
	client    videoClient
	converter converter
	tempDir   string
}

// NewDownloader creates a Downloader that converts streams with conv.
func NewDownloader(conv converter, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    &kkdai.Client{},
		converter: conv,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FetchAudio downloads the best audio-only stream of videoURL into a fresh
// work directory and converts it to 16 kHz mono WAV. On any failure the work
// directory is removed before returning.
func (d *Downloader) FetchAudio(ctx context.Context, videoURL string) (_ *media.AudioFile, err error) {
	video, err := d.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("youtube: resolve %s: %w", videoURL, err)
	}
	format, err := bestAudioFormat(video.Formats)
	if err != nil {
		return nil, fmt.Errorf("youtube: %s: %w", videoURL, err)
	}

	dir, err := media.NewWorkDir(d.tempDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = dir.Remove()
		}
	}()

	start := time.Now()
	source := dir.File("source" + extensionFor(format.MimeType))
	n, err := d.download(ctx, video, format, source)
	if err != nil {
		return nil, err
	}
	slog.Debug("audio stream downloaded",
		"video", video.ID,
		"itag", format.ItagNo,
		"mime", format.MimeType,
		"bytes", n,
		"duration", time.Since(start),
	)

	wav := dir.File("audio.wav")
	if err := d.converter.ToWAV(ctx, source, wav); err != nil {
		return nil, fmt.Errorf("youtube: convert %s: %w", video.ID, err)
	}
	// The compressed source is no longer needed once the WAV exists.
	_ = os.Remove(source)

	return media.NewAudioFile(wav, videoURL, dir), nil
}

func (d *Downloader) download(ctx context.Context, video *kkdai.Video, format *kkdai.Format, dest string) (int64, error) {
	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, fmt.Errorf("youtube: open stream of %s: %w", video.ID, err)
	}
	defer stream.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("youtube: create %s: %w", dest, err)
	}
	n, err := io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("youtube: download %s: %w", video.ID, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("youtube: download %s: empty stream", video.ID)
	}
	return n, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
// Muxed formats are used only when no audio-only stream exists, and then the
// one with the lowest bitrate wins: its video track is thrown away after the
// download, so a smaller file means less to fetch for the same audio.
func bestAudioFormat(formats kkdai.FormatList) (*kkdai.Format, error) {
	var best, smallestMuxed *kkdai.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels <= 0 {
			continue
		}
		if strings.HasPrefix(f.MimeType, "audio/") {
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
			continue
		}
		if smallestMuxed == nil || f.Bitrate < smallestMuxed.Bitrate {
			smallestMuxed = f
		}
	}
	if best != nil {
		return best, nil
	}
	if smallestMuxed != nil {
		return smallestMuxed, nil
	}
	return nil, ErrNoAudioFormat
}

// extensionFor maps a format MIME type such as `audio/webm; codecs="opus"`
// to a file extension. ffmpeg detects the container from the content, so the
// extension is informational.
func extensionFor(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".bin"
	}
	switch mt {
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/mp4":
		return ".m4a"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}
