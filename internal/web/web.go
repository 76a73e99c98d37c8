// Package web serves the stumpscribe user interface and JSON API.
//
// The HTML interface is a single page: pick a channel, pick one of its recent
// videos, optionally ask for a summary, and read the corrected transcript.
// Every failure is rendered on the page as "Error: <message>". The JSON API
// exposes the same operations for scripting:
//
//	GET  /api/channels
//	GET  /api/channels/{name}/videos
//	POST /api/transcribe
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrWong99/stumpscribe/internal/app"
	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/health"
	"github.com/MrWong99/stumpscribe/internal/observe"
	"github.com/MrWong99/stumpscribe/internal/youtube"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 16

// Service is the application surface the web layer drives. *app.App
// satisfies it.
type Service interface {
	Channels() []channels.Channel
	ListVideos(ctx context.Context, channel string) ([]youtube.Video, error)
	HandleTranscribe(ctx context.Context, req app.Request) (*app.Result, error)
	SummariesAvailable() bool
}

var _ Service = (*app.App)(nil)

// Option is a functional option for [New].
type Option func(*Server)

// WithHealth mounts /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetricsHandler mounts h at /metrics, usually promhttp.Handler().
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMetrics sets the instruments used by the tracing middleware. Defaults
// to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server routes HTTP requests to a [Service].
type Server struct {
	svc            Service
	tmpl           *template.Template
	health         *health.Handler
	metricsHandler http.Handler
	metrics        *observe.Metrics
	handler        http.Handler
}

// New builds the server and its routes.
func New(svc Service, opts ...Option) (*Server, error) {
	s := &Server{svc: svc}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"dur": func(d time.Duration) string { return d.Round(time.Second).String() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	s.tmpl = tmpl

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /transcribe", s.handleTranscribeForm)
	mux.HandleFunc("GET /api/channels", s.handleChannels)
	mux.HandleFunc("GET /api/channels/{name}/videos", s.handleVideos)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribeAPI)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	s.handler = observe.Middleware(s.metrics)(mux)
	return s, nil
}

// Handler returns the root handler including the tracing middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout. TLS is enabled when certFile and keyFile are both set.
func (s *Server) Run(ctx context.Context, addr, certFile, keyFile string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: a transcription holds its request for minutes.
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	slog.Info("web server listening", "addr", addr, "tls", certFile != "")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return <-errCh
}

// ─── HTML ────────────────────────────────────────────────────────────────────

// page is the data rendered by index.html.
type page struct {
	Channels           []channels.Channel
	Channel            channels.Channel
	Videos             []youtube.Video
	VideosError        string
	VideoID            string
	Summarize          bool
	SummariesAvailable bool
	Result             *app.Result
	Error              string
}

func (s *Server) newPage(ctx context.Context, channel string) (*page, int) {
	p := &page{
		Channels:           s.svc.Channels(),
		SummariesAvailable: s.svc.SummariesAvailable(),
	}
	if channel == "" {
		return p, http.StatusOK
	}
	for _, ch := range p.Channels {
		if ch.Name == channel {
			p.Channel = ch
		}
	}
	if p.Channel.Name == "" {
		p.Error = fmt.Sprintf("%v: %q", app.ErrUnknownChannel, channel)
		return p, http.StatusNotFound
	}
	videos, err := s.svc.ListVideos(ctx, channel)
	if err != nil {
		// The page still works with a manually entered video id.
		observe.Logger(ctx).Warn("failed to list videos", "channel", channel, "err", err)
		p.VideosError = err.Error()
	}
	p.Videos = videos
	return p, http.StatusOK
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p, status := s.newPage(r.Context(), r.URL.Query().Get("channel"))
	s.render(w, status, p)
}

func (s *Server) handleTranscribeForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		p, _ := s.newPage(r.Context(), "")
		p.Error = "invalid form: " + err.Error()
		s.render(w, http.StatusBadRequest, p)
		return
	}
	req := app.Request{
		Channel:   r.PostForm.Get("channel"),
		VideoID:   r.PostForm.Get("video"),
		Summarize: r.PostForm.Get("summarize") != "",
	}

	res, err := s.svc.HandleTranscribe(r.Context(), req)

	p, status := s.newPage(r.Context(), req.Channel)
	p.VideoID = req.VideoID
	p.Summarize = req.Summarize
	if err != nil {
		p.Error = err.Error()
		status = statusFor(err)
	} else {
		p.Result = res
	}
	s.render(w, status, p)
}

func (s *Server) render(w http.ResponseWriter, status int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", p); err != nil {
		slog.Error("render page", "err", err)
	}
}

// ─── JSON API ────────────────────────────────────────────────────────────────

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Channels())
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.svc.ListVideos(r.Context(), r.PathValue("name"))
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	if videos == nil {
		videos = []youtube.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleTranscribeAPI(w http.ResponseWriter, r *http.Request) {
	var req app.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	res, err := s.svc.HandleTranscribe(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrUnknownChannel):
		return http.StatusNotFound
	case errors.Is(err, app.ErrSummaryNotOffered), errors.Is(err, app.ErrInvalidVideo):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrSummarizerUnavailable), errors.Is(err, youtube.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode JSON response", "err", err)
	}
}
