package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/janitor"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/ports/adapters/facedet"
	"github.com/clipforge/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipforge/internal/ports/adapters/gemini"
	"github.com/clipforge/clipforge/internal/ports/adapters/groq"
	"github.com/clipforge/clipforge/internal/ports/adapters/ytdlp"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/types"
)

func run(cmd *cobra.Command, input string) error {
	app, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, &app)

	log := logging.New(app.LogLevel)

	outDir, _ := cmd.Flags().GetString("out")
	segPath, _ := cmd.Flags().GetString("segments")
	segments, err := loadSegments(segPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps := pipeline.Deps{
		Video:    ffmpeg.New(app.Tools.FFmpeg, app.Tools.FFprobe),
		Detector: facedet.New(app.Tools.DetectorBin, app.Tools.DetectorModel),
		Log:      log,
	}
	deps.Download = providers.DownloadChain{
		Providers: []ports.Downloader{ytdlp.New(app.Tools.YtDlp)},
		Log:       log,
	}

	if key := app.Providers.Groq.APIKey; key != "" {
		if err := groq.ValidateBaseURL(app.Providers.Groq.BaseURL, app.Providers.Groq.AllowedHosts); err != nil {
			return fmt.Errorf("groq: %w", err)
		}
		deps.Transcribe = providers.TranscribeChain{
			Providers: []ports.Transcriber{groq.New(key, app.Providers.Groq.Model, app.Providers.Groq.BaseURL)},
			Log:       log,
		}
	}
	if key := app.Providers.Gemini.APIKey; key != "" {
		an, err := gemini.New(ctx, key, app.Providers.Gemini.Model, app.Providers.Gemini.MaxSegments)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		deps.Analyze = providers.AnalyzeChain{
			Providers: []ports.SegmentAnalyzer{an},
			Log:       log,
		}
	}

	if app.Janitor.Enabled {
		j := janitor.New(app.Task.WorkDir, app.Janitor.TTL, log)
		stop, err := j.Start(app.Janitor.Schedule)
		if err != nil {
			return fmt.Errorf("janitor: %w", err)
		}
		defer stop()
		j.Sweep() // catch leftovers from previous runs right away
	}

	start := time.Now()
	result, err := pipeline.Run(ctx, deps, pipeline.Config{
		Input:    input,
		OutDir:   outDir,
		Segments: segments,
		App:      app,
	})
	if err != nil {
		return err
	}

	for _, c := range result.Clips {
		log.Info("clip ready", "file", c.Path, "title", c.Title, "subtitles", c.HasSubtitles)
	}
	if result.PartiallyCompleted() {
		log.Warn("task partially completed",
			"clips", len(result.Clips), "failed", len(result.Failures))
	}
	log.Info("task finished", "clips", len(result.Clips), "elapsed", time.Since(start).Round(time.Second))
	return nil
}

func applyFlags(cmd *cobra.Command, app *config.Config) {
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		app.Task.Workers = n
	}
	if v, _ := cmd.Flags().GetBool("no-vertical"); v {
		app.Output.CreateVertical = false
	}
	if v, _ := cmd.Flags().GetBool("no-subtitles"); v {
		app.Subtitles.Burn = false
	}
	if s, _ := cmd.Flags().GetString("style"); s != "" {
		app.Subtitles.Style = s
	}
	if s, _ := cmd.Flags().GetString("smoothing"); s != "" {
		app.Tracking.SmoothingStrength = s
	}
	if s, _ := cmd.Flags().GetString("quality"); s != "" {
		app.Output.Quality = s
	}
	if s, _ := cmd.Flags().GetString("codec"); s != "" {
		app.Output.ExportCodec = s
	}
	if n, _ := cmd.Flags().GetInt("font-size"); n > 0 {
		app.Subtitles.FontSize = n
	}
}

// loadSegments reads an optional JSON file of time windows in seconds.
func loadSegments(path string) ([]types.Segment, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments file: %w", err)
	}
	var in []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Title string  `json:"title"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parse segments file: %w", err)
	}
	out := make([]types.Segment, 0, len(in))
	for _, s := range in {
		out = append(out, types.Segment{
			Start: time.Duration(s.Start * float64(time.Second)),
			End:   time.Duration(s.End * float64(time.Second)),
			Title: s.Title,
		})
	}
	return out, nil
}
