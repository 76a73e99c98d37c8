// Package youtube lists recent uploads of a channel and downloads the audio
// track of a single video.
//
// Listing goes through the YouTube Data API v3 (search.list). Downloads use
// github.com/kkdai/youtube/v2 and hand the raw stream to internal/media for
// conversion to 16 kHz mono WAV.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultMaxResults bounds a channel listing when no limit is configured.
const DefaultMaxResults = 10

// ErrNoAPIKey is returned by [DataAPIResolver.ListRecentVideos] when no
// Data API key is configured.
var ErrNoAPIKey = errors.New("youtube: no Data API key configured")

// Video is a single upload of a channel.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// URL returns the watch page address of the video.
func (v Video) URL() string { return VideoURL(v.ID) }

// VideoURL builds the canonical watch URL for a video id.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Resolver lists the most recent videos of a channel.
type Resolver interface {
	// ListRecentVideos returns the newest uploads of channelID, most recent
	// first.
	ListRecentVideos(ctx context.Context, channelID string) ([]Video, error)
}

// Compile-time assertion that DataAPIResolver satisfies Resolver.
var _ Resolver = (*DataAPIResolver)(nil)

// ResolverOption is a functional option for [NewDataAPIResolver].
type ResolverOption func(*DataAPIResolver)

// WithMaxResults caps the number of videos returned. Values outside 1..50
// (the Data API page limit) are ignored.
func WithMaxResults(n int) ResolverOption {
	return func(r *DataAPIResolver) {
		if n > 0 && n <= 50 {
			r.maxResults = n
		}
	}
}

// WithClientOptions appends Google API client options, e.g. a custom
// endpoint for tests.
func WithClientOptions(opts ...option.ClientOption) ResolverOption {
	return func(r *DataAPIResolver) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// DataAPIResolver implements Resolver with the YouTube Data API v3.
type DataAPIResolver struct {
	svc        *ytapi.Service
	maxResults int
	clientOpts []option.ClientOption
}

// NewDataAPIResolver creates a resolver authenticated with apiKey. An empty
// key yields a resolver whose every call fails with [ErrNoAPIKey], so a
// deployment without a key can still transcribe videos by id.
func NewDataAPIResolver(ctx context.Context, apiKey string, opts ...ResolverOption) (*DataAPIResolver, error) {
	r := &DataAPIResolver{maxResults: DefaultMaxResults}
	for _, o := range opts {
		o(r)
	}
	if apiKey == "" {
		slog.Warn("youtube: no Data API key configured, channel listings are disabled")
		return r, nil
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, r.clientOpts...)
	svc, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: create data api service: %w", err)
	}
	r.svc = svc
	return r, nil
}

// MaxResults returns the configured listing limit.
func (r *DataAPIResolver) MaxResults() int { return r.maxResults }

// ListRecentVideos implements Resolver using search.list ordered by date.
func (r *DataAPIResolver) ListRecentVideos(ctx context.Context, channelID string) ([]Video, error) {
	if r.svc == nil {
		return nil, ErrNoAPIKey
	}
	if channelID == "" {
		return nil, errors.New("youtube: channel id must not be empty")
	}

	resp, err := r.svc.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Order("date").
		Type("video").
		MaxResults(int64(r.maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: list videos of %s: %w", channelID, err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		v := Video{
			ID:    item.Id.VideoId,
			Title: html.UnescapeString(item.Snippet.Title),
		}
		if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			v.PublishedAt = ts
		}
		videos = append(videos, v)
	}
	return videos, nil
}
