package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MrWong99/stumpscribe/internal/app"
	"github.com/MrWong99/stumpscribe/internal/channels"
	"github.com/MrWong99/stumpscribe/internal/config"
	"github.com/MrWong99/stumpscribe/internal/media"
	"github.com/MrWong99/stumpscribe/internal/transcript"
	"github.com/MrWong99/stumpscribe/internal/youtube"
)

// notConfigured is shown for empty provider slots.
const notConfigured = "(not configured)"

// renderStartupSummary returns the table printed once the providers are
// built.
func renderStartupSummary(cfg *config.Config, p *transcript.CorrectionPipeline, dir *channels.Directory) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("stumpscribe: startup summary")

	tw.AppendRow(table.Row{"STT", providerLabel(cfg.Providers.STT)})
	tw.AppendRow(table.Row{"LLM", providerLabel(cfg.Providers.LLM)})
	tw.AppendRow(table.Row{"Channels", fmt.Sprintf("%d: %s", dir.Len(), strings.Join(dir.Names(), ", "))})
	hints, exact, gated := p.Sizes()
	tw.AppendRow(table.Row{"Corrections", fmt.Sprintf("%d hints, %d exact, %d context", hints, exact, gated)})
	tw.AppendRow(table.Row{"Threshold", p.Threshold()})
	tw.AppendRow(table.Row{"YouTube API", keyState(cfg.YouTube.APIKey)})
	tw.AppendRow(table.Row{"FFmpeg", media.NewConverter(cfg.Audio.FFmpegPath).Binary()})
	tw.AppendRow(table.Row{"Concurrent jobs", cfg.Server.MaxConcurrentJobs})
	tw.AppendRow(table.Row{"Listen addr", cfg.Server.ListenAddr})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, WidthMax: 48},
	})
	return tw.Render()
}

func providerLabel(e config.ProviderEntry) string {
	switch {
	case e.Name == "":
		return notConfigured
	case e.Model != "":
		return e.Name + " / " + e.Model
	default:
		return e.Name
	}
}

func keyState(key string) string {
	if key == "" {
		return notConfigured
	}
	return "configured"
}

// renderVideos returns the recent uploads of a channel as a table.
func renderVideos(channel string, videos []youtube.Video) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(channel)
	tw.AppendHeader(table.Row{"#", "Published", "Title", "URL"})
	for i, v := range videos {
		published := ""
		if !v.PublishedAt.IsZero() {
			published = v.PublishedAt.Format(time.DateOnly)
		}
		tw.AppendRow(table.Row{i + 1, published, v.Title, v.URL()})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: 60},
	})
	return tw.Render()
}

// writeResult prints a transcription result for the one-shot mode.
func writeResult(w io.Writer, res *app.Result) {
	fmt.Fprintf(w, "%s (%s)\n", res.VideoURL, res.Channel)
	fmt.Fprintf(w, "job %s finished in %s\n\n", res.JobID, res.Elapsed.Round(time.Second))
	if res.Summary != "" {
		fmt.Fprintf(w, "Summary:\n%s\n\n", res.Summary)
	}
	fmt.Fprintln(w, res.Text)

	if len(res.Corrections) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Corrections")
	tw.AppendHeader(table.Row{"Original", "Corrected", "Pass", "Count"})
	for _, c := range res.Corrections {
		tw.AppendRow(table.Row{c.Original, c.Corrected, c.Method, c.Occurrences})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimRight(tw.Render(), "\n"))
}
