package youtube_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/MrWong99/stumpscribe/internal/youtube"
)

const searchResponse = `{
  "kind": "youtube#searchListResponse",
  "items": [
    {"id": {"kind": "youtube#video", "videoId": "vid-new"},
     "snippet": {"title": "Town hall in Phoenix &amp; Tucson", "publishedAt": "2024-10-02T18:00:00Z"}},
    {"id": {"kind": "youtube#channel", "channelId": "UCx"},
     "snippet": {"title": "not a video"}},
    {"id": {"kind": "youtube#video", "videoId": "vid-old"},
     "snippet": {"title": "Rally", "publishedAt": "2024-09-30T09:30:00Z"}}
  ]
}`

func TestVideoURL(t *testing.T) {
	t.Parallel()
	if got := youtube.VideoURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("VideoURL=%q", got)
	}
	v := youtube.Video{ID: "abc"}
	if v.URL() != youtube.VideoURL("abc") {
		t.Errorf("Video.URL()=%q", v.URL())
	}
}

func TestDataAPIResolver_ListRecentVideos(t *testing.T) {
	t.Parallel()

	queries := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		key := q.Get("key")
		if key == "" {
			key = r.Header.Get("X-Goog-Api-Key")
		}
		queries <- map[string]string{
			"key":        key,
			"part":       q.Get("part"),
			"channelId":  q.Get("channelId"),
			"order":      q.Get("order"),
			"type":       q.Get("type"),
			"maxResults": q.Get("maxResults"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	t.Cleanup(srv.Close)

	r, err := youtube.NewDataAPIResolver(context.Background(), "test-key",
		youtube.WithMaxResults(5),
		youtube.WithClientOptions(option.WithEndpoint(srv.URL+"/")),
	)
	if err != nil {
		t.Fatal(err)
	}

	videos, err := r.ListRecentVideos(context.Background(), "UCxggVFesZy65a0WBT3_roXQ")
	if err != nil {
		t.Fatalf("ListRecentVideos: %v", err)
	}

	q := <-queries
	want := map[string]string{
		"key":        "test-key",
		"part":       "snippet",
		"channelId":  "UCxggVFesZy65a0WBT3_roXQ",
		"order":      "date",
		"type":       "video",
		"maxResults": "5",
	}
	for k, v := range want {
		if q[k] != v {
			t.Errorf("query %s=%q, want %q", k, q[k], v)
		}
	}

	if len(videos) != 2 {
		t.Fatalf("len(videos)=%d, want 2: %+v", len(videos), videos)
	}
	if videos[0].ID != "vid-new" || videos[1].ID != "vid-old" {
		t.Errorf("order = %s, %s; want vid-new, vid-old", videos[0].ID, videos[1].ID)
	}
	if videos[0].Title != "Town hall in Phoenix & Tucson" {
		t.Errorf("Title=%q, want HTML entities decoded", videos[0].Title)
	}
	if want := time.Date(2024, 10, 2, 18, 0, 0, 0, time.UTC); !videos[0].PublishedAt.Equal(want) {
		t.Errorf("PublishedAt=%v, want %v", videos[0].PublishedAt, want)
	}
}

func TestDataAPIResolver_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
	}))
	t.Cleanup(srv.Close)

	r, err := youtube.NewDataAPIResolver(context.Background(), "k",
		youtube.WithClientOptions(option.WithEndpoint(srv.URL+"/")))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.ListRecentVideos(context.Background(), "UCabc")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "UCabc") {
		t.Errorf("error %q does not name the channel", err)
	}
}

func TestDataAPIResolver_NoKey(t *testing.T) {
	t.Parallel()

	r, err := youtube.NewDataAPIResolver(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if r.MaxResults() != youtube.DefaultMaxResults {
		t.Errorf("MaxResults()=%d, want %d", r.MaxResults(), youtube.DefaultMaxResults)
	}
	if _, err := r.ListRecentVideos(context.Background(), "UCabc"); !errors.Is(err, youtube.ErrNoAPIKey) {
		t.Errorf("err=%v, want ErrNoAPIKey", err)
	}
}

func TestWithMaxResults_Bounds(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, 51} {
		r, _ := youtube.NewDataAPIResolver(context.Background(), "", youtube.WithMaxResults(n))
		if r.MaxResults() != youtube.DefaultMaxResults {
			t.Errorf("WithMaxResults(%d): MaxResults()=%d", n, r.MaxResults())
		}
	}
}
