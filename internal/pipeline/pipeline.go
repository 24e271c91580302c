// Package pipeline orchestrates a whole clip task: source acquisition,
// transcription, segment selection and the bounded-parallel per-segment
// processing fan-out.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/domain/subtitles"
	"github.com/clipforge/clipforge/internal/domain/tracking"
	"github.com/clipforge/clipforge/internal/errs"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/status"
	"github.com/clipforge/clipforge/internal/types"
	"github.com/clipforge/clipforge/internal/usecase"
)

// Deps are the pipeline's collaborators. Download, Transcribe and Analyze are
// optional; a nil provider disables the corresponding capability.
type Deps struct {
	Video      ports.VideoTool
	Detector   ports.FaceDetector
	Download   ports.Downloader
	Transcribe ports.Transcriber
	Analyze    ports.SegmentAnalyzer
	Log        *slog.Logger
	Sink       status.Sink
}

// Config is one task's request.
type Config struct {
	Input    string // local file path or a URL for the downloader
	OutDir   string
	Segments []types.Segment // empty means derive via the analyzer
	App      config.Config
}

// Validate rejects requests that cannot possibly run.
func (c Config) Validate(d Deps) error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("%w: input is required", errs.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.OutDir) == "" {
		return fmt.Errorf("%w: output directory is required", errs.ErrInvalidConfig)
	}
	if c.App.Task.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", errs.ErrInvalidConfig)
	}
	if d.Video == nil {
		return fmt.Errorf("%w: video tool is required", errs.ErrInvalidConfig)
	}
	if c.App.Output.CreateVertical && d.Detector == nil {
		return fmt.Errorf("%w: face detector is required for vertical output", errs.ErrInvalidConfig)
	}
	if isURL(c.Input) && d.Download == nil {
		return fmt.Errorf("%w: no downloader configured for URL input", errs.ErrInvalidConfig)
	}
	if len(c.Segments) == 0 && d.Analyze == nil {
		return fmt.Errorf("%w: no segments given and no analyzer configured", errs.ErrInvalidConfig)
	}
	return nil
}

// Run executes the task end to end and returns the per-segment outcome.
// Independent segment failures are collected, not propagated; only
// unrecoverable conditions fail the whole task.
func Run(ctx context.Context, d Deps, cfg Config) (types.TaskResult, error) {
	if err := cfg.Validate(d); err != nil {
		return types.TaskResult{}, err
	}

	taskID := uuid.NewString()
	taskDir := filepath.Join(cfg.App.Task.WorkDir, "tasks", taskID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return types.TaskResult{}, fmt.Errorf("create task workspace: %w", err)
	}
	defer os.RemoveAll(taskDir)
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return types.TaskResult{}, fmt.Errorf("create output directory: %w", err)
	}

	log := d.Log.With("task", taskID)
	result := types.TaskResult{TaskID: taskID, Input: cfg.Input}

	// A missing detector binary or model fails every segment the same way, so
	// check once before any work starts.
	if cfg.App.Output.CreateVertical {
		if err := d.Detector.Verify(); err != nil {
			return result, fmt.Errorf("%w: %w", errs.ErrTrackingUnavailable, err)
		}
	}

	src, tr, segments, err := prepare(ctx, d, cfg, log, taskDir)
	if err != nil {
		return result, err
	}
	if err := validateSegments(segments, src.Duration); err != nil {
		return result, err
	}

	tracker := status.NewTracker(taskID, segments, d.Sink)
	log.Info("processing segments", "count", len(segments), "workers", cfg.App.Task.Workers,
		"source", src.Path, "duration", src.Duration)

	clips, failures := fanOut(ctx, d, cfg, src, tr.Words, segments, taskDir, tracker)
	result.Clips = clips
	result.Failures = failures

	if ctx.Err() != nil && cfg.App.Task.DiscardOnCancel {
		for _, c := range result.Clips {
			os.Remove(c.Path)
		}
		result.Clips = nil
	}

	if err := writeManifest(cfg.OutDir, result); err != nil {
		log.Warn("manifest write failed", "err", err)
	}

	switch {
	case ctx.Err() != nil:
		tracker.SetTaskError(ctx.Err())
		return result, ctx.Err()
	case len(result.Clips) == 0 && len(result.Failures) > 0:
		err := fmt.Errorf("all %d segments failed", len(result.Failures))
		tracker.SetTaskError(err)
		return result, err
	default:
		tracker.SetStage("done", fmt.Sprintf("%d clips produced", len(result.Clips)))
		return result, nil
	}
}

// prepare acquires the source, probes it and resolves the transcript and
// segment list. Transcription failure is fatal only when segment selection
// depends on it; otherwise the task degrades to subtitle-free clips.
func prepare(ctx context.Context, d Deps, cfg Config, log *slog.Logger, taskDir string) (types.VideoInfo, types.Transcript, []types.Segment, error) {
	srcPath := cfg.Input
	if isURL(cfg.Input) {
		log.Info("downloading source", "url", cfg.Input)
		p, err := d.Download.Download(ctx, cfg.Input, filepath.Join(taskDir, "source"), cfg.App.Output.Quality)
		if err != nil {
			return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("download source: %w", err)
		}
		srcPath = p
	} else if _, err := os.Stat(srcPath); err != nil {
		return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("%w: input %s: %v", errs.ErrInvalidConfig, srcPath, err)
	}

	src, err := d.Video.Probe(ctx, srcPath)
	if err != nil {
		return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("probe source: %w", err)
	}

	needTranscript := len(cfg.Segments) == 0 || (cfg.App.Subtitles.Burn && d.Transcribe != nil)
	var tr types.Transcript
	if needTranscript && d.Transcribe != nil {
		log.Info("transcribing source")
		tr, err = d.Transcribe.Transcribe(ctx, srcPath)
		if err != nil {
			if len(cfg.Segments) == 0 {
				return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("transcribe source: %w", err)
			}
			log.Warn("transcription failed, clips will have no subtitles", "err", err)
			tr = types.Transcript{}
		}
	}

	segments := cfg.Segments
	if len(segments) == 0 {
		log.Info("selecting segments from transcript")
		segments, err = d.Analyze.Analyze(ctx, tr, src.Duration)
		if err != nil {
			return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("analyze transcript: %w", err)
		}
		if len(segments) == 0 {
			return types.VideoInfo{}, types.Transcript{}, nil, fmt.Errorf("analyzer returned no segments")
		}
	}
	return src, tr, segments, nil
}

func validateSegments(segments []types.Segment, duration time.Duration) error {
	for i, s := range segments {
		if s.Start < 0 || s.End <= s.Start {
			return fmt.Errorf("%w: segment %d has invalid window %s-%s", errs.ErrInvalidConfig, i, s.Start, s.End)
		}
		if duration > 0 && s.End > duration {
			return fmt.Errorf("%w: segment %d ends at %s beyond source duration %s",
				errs.ErrInvalidConfig, i, s.End, duration)
		}
	}
	return nil
}

// fanOut processes segments with a bounded worker pool. A fatal error from any
// worker cancels the rest; ordinary failures only mark their own segment.
func fanOut(ctx context.Context, d Deps, cfg Config, src types.VideoInfo, words []types.Word,
	segments []types.Segment, taskDir string, tracker *status.Tracker) ([]types.ClipArtifact, []types.SegmentFailure) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uc := usecase.New(usecase.Deps{Video: d.Video, Detector: d.Detector, Log: d.Log})
	opts := buildOptions(cfg, words)

	type outcome struct {
		clip types.ClipArtifact
		err  error
	}
	outcomes := make([]outcome, len(segments))

	sem := make(chan struct{}, cfg.App.Task.Workers)
	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg types.Segment) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				// Never started; report the cancellation itself, not a stage kind.
				outcomes[i] = outcome{err: &errs.SegmentError{SegmentIndex: i, Stage: "queue", Err: ctx.Err()}}
				return
			}

			clip, err := uc.ProcessSegment(ctx, usecase.SegmentInput{
				Index:   i,
				Segment: seg,
				Source:  src,
				Words:   words,
				WorkDir: filepath.Join(taskDir, "segments", fmt.Sprintf("%03d", i)),
				OutPath: filepath.Join(cfg.OutDir, clipFileName(i, seg.Title)),
				Opts:    opts,
				Report:  func(st status.SegmentState) { tracker.SetSegmentState(i, st) },
			})
			outcomes[i] = outcome{clip: clip, err: err}
			if err != nil {
				tracker.SetSegmentError(i, err)
				if errs.Fatal(err) {
					cancel()
				}
			} else {
				tracker.SetSegmentState(i, status.Done)
			}
		}(i, seg)
	}
	wg.Wait()

	var clips []types.ClipArtifact
	var failures []types.SegmentFailure
	for i, o := range outcomes {
		if o.err != nil {
			failures = append(failures, types.SegmentFailure{
				SegmentIndex: i,
				Stage:        failureStage(o.err),
				Error:        o.err.Error(),
			})
			continue
		}
		clips = append(clips, o.clip)
	}
	sort.Slice(clips, func(a, b int) bool { return clips[a].SegmentIndex < clips[b].SegmentIndex })
	return clips, failures
}

func buildOptions(cfg Config, words []types.Word) usecase.Options {
	app := cfg.App
	return usecase.Options{
		CreateVertical:  app.Output.CreateVertical,
		BurnSubtitles:   app.Subtitles.Burn && len(words) > 0,
		Preset:          resolvePreset(app.Tracking),
		SampleStride:    app.Tracking.SampleStride,
		SceneReset:      app.Tracking.SceneReset,
		SceneThreshold:  app.Tracking.SceneThreshold,
		TargetHeight:    app.Output.TargetHeight,
		Codec:           app.Output.ExportCodec,
		CRF:             app.Output.CRF,
		FontSize:        app.Subtitles.FontSize,
		Chunk:           chunkConfig(app.Subtitles),
		ExtractTimeout:  app.Task.ExtractTimeout,
		EncodeMultiple:  app.Task.EncodeMultiple,
		EncodeMinBudget: app.Task.EncodeMinBudget,
		ReframeRetries:  app.Task.ReframeRetries,
	}
}

// resolvePreset starts from the built-in strength constants and applies any
// per-deployment overrides from configuration.
func resolvePreset(tc config.TrackingConfig) tracking.Preset {
	p := tracking.PresetFor(tc.SmoothingStrength)
	if o, ok := tc.Presets[p.Name]; ok {
		if o.Factor > 0 {
			p.Factor = o.Factor
		}
		if o.MaxJumpPx > 0 {
			p.MaxJumpPx = o.MaxJumpPx
		}
		if o.Window > 0 {
			p.Window = o.Window
		}
	}
	return p
}

func chunkConfig(sc config.SubtitlesConfig) subtitles.ChunkConfig {
	mode := subtitles.ModeShortForm
	if sc.Style == string(subtitles.ModeTraditional) {
		mode = subtitles.ModeTraditional
	}
	return subtitles.ChunkConfig{
		Mode:          mode,
		MaxLineChars:  sc.MaxLineChars,
		MaxLines:      sc.MaxLines,
		MaxWords:      sc.MaxWords,
		MinDuration:   sc.MinDuration,
		MaxDuration:   sc.MaxDuration,
		GapThreshold:  sc.GapThreshold,
		InterChunkGap: sc.InterChunkGap,
	}
}

func failureStage(err error) string {
	var se *errs.SegmentError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

func writeManifest(outDir string, result types.TaskResult) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "manifest.json"), raw, 0o644)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// clipFileName builds a filesystem-safe output name from the segment's index
// and title.
func clipFileName(index int, title string) string {
	safe := normalizeName(title)
	if safe == "" {
		return fmt.Sprintf("clip_%02d.mp4", index+1)
	}
	return fmt.Sprintf("clip_%02d_%s.mp4", index+1, safe)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 48 {
		out = strings.Trim(out[:48], "_")
	}
	return out
}
