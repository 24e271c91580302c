// Package usecase runs one segment's stage pipeline:
// extract -> track -> reframe -> burn, with transcript chunking running
// concurrently since it needs no pixel data.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge/internal/domain/reframe"
	"github.com/clipforge/clipforge/internal/domain/subtitles"
	"github.com/clipforge/clipforge/internal/domain/tracking"
	"github.com/clipforge/clipforge/internal/errs"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/status"
	"github.com/clipforge/clipforge/internal/types"
)

// extraction boundary handling: stream-copy cuts land on keyframes, so the
// single retry widens the window to catch a keyframe just before start.
const (
	extractWiden = 250 * time.Millisecond
)

type Deps struct {
	Video    ports.VideoTool
	Detector ports.FaceDetector
	Log      *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

// Options carries the per-task knobs that shape one segment's processing.
type Options struct {
	CreateVertical  bool
	BurnSubtitles   bool
	Preset          tracking.Preset
	SampleStride    time.Duration
	SceneReset      bool
	SceneThreshold  float64
	TargetHeight    int
	Codec           string
	CRF             int
	FontSize        int
	Chunk           subtitles.ChunkConfig
	ExtractTimeout  time.Duration
	EncodeMultiple  float64
	EncodeMinBudget time.Duration
	ReframeRetries  int
}

// SegmentInput is everything one segment worker needs. WorkDir is exclusive
// to this segment; the pipeline guarantees no other worker touches it.
type SegmentInput struct {
	Index   int
	Segment types.Segment
	Source  types.VideoInfo
	Words   []types.Word
	WorkDir string
	OutPath string
	Opts    Options
	Report  func(status.SegmentState)
}

// ProcessSegment runs the full chain for one segment and returns its final
// artifact. Temporary files are removed on every exit path. Subtitle burn
// failure degrades the result instead of failing it.
func (u Usecase) ProcessSegment(ctx context.Context, in SegmentInput) (types.ClipArtifact, error) {
	if err := os.MkdirAll(in.WorkDir, 0o755); err != nil {
		return types.ClipArtifact{}, errs.Segment(in.Index, "setup", errs.ErrResourceExhausted, err)
	}
	defer os.RemoveAll(in.WorkDir)

	report := in.Report
	if report == nil {
		report = func(status.SegmentState) {}
	}

	// Chunking only needs the transcript and the window, so it overlaps the
	// video stages.
	chunkCh := make(chan []types.SubtitleChunk, 1)
	go func() {
		chunkCh <- subtitles.Chunk(in.Words, in.Segment, in.Opts.Chunk)
	}()

	report(status.Extracting)
	cut := filepath.Join(in.WorkDir, "cut.mp4")
	if err := u.extractWithRetry(ctx, in, cut); err != nil {
		return types.ClipArtifact{}, err
	}

	report(status.Reframing)
	current := cut
	if in.Opts.CreateVertical {
		vertical := filepath.Join(in.WorkDir, "vertical.mp4")
		if err := u.reframe(ctx, in, cut, vertical); err != nil {
			return types.ClipArtifact{}, err
		}
		os.Remove(cut) // the extracted clip is no longer needed
		current = vertical
	}

	chunks := <-chunkCh

	report(status.Subtitling)
	burned := false
	if in.Opts.BurnSubtitles && len(chunks) > 0 {
		withSubs := filepath.Join(in.WorkDir, "subtitled.mp4")
		if err := u.burn(ctx, in, current, chunks, withSubs); err != nil {
			// Non-fatal: deliver the un-subtitled clip as a degraded result.
			u.d.Log.Warn("subtitle burn failed, delivering clip without subtitles",
				"segment", in.Index, "err", err)
		} else {
			os.Remove(current)
			current = withSubs
			burned = true
		}
	}

	if err := moveFile(current, in.OutPath); err != nil {
		return types.ClipArtifact{}, errs.Segment(in.Index, "finalize", errs.ErrResourceExhausted, err)
	}

	return types.ClipArtifact{
		Path:         in.OutPath,
		SegmentIndex: in.Index,
		Title:        in.Segment.Title,
		StartSec:     in.Segment.Start.Seconds(),
		EndSec:       in.Segment.End.Seconds(),
		Duration:     in.Segment.Duration(),
		HasSubtitles: burned,
		Codec:        in.Opts.Codec,
	}, nil
}

func (u Usecase) extractWithRetry(ctx context.Context, in SegmentInput, out string) error {
	seg := in.Segment
	err := u.extractOnce(ctx, in.Source.Path, seg.Start, seg.End, out, in.Opts.ExtractTimeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errs.Segment(in.Index, "extract", errs.ErrExtractionFailed, ctx.Err())
	}

	// Widen once: a keyframe slightly before start often fixes an empty cut.
	start := seg.Start - extractWiden
	if start < 0 {
		start = 0
	}
	end := seg.End + extractWiden
	if in.Source.Duration > 0 && end > in.Source.Duration {
		end = in.Source.Duration
	}
	u.d.Log.Warn("extraction failed, retrying with widened bounds",
		"segment", in.Index, "start", start, "end", end, "err", err)

	if err := u.extractOnce(ctx, in.Source.Path, start, end, out, in.Opts.ExtractTimeout); err != nil {
		return errs.Segment(in.Index, "extract", errs.ErrExtractionFailed,
			fmt.Errorf("range %s-%s: %w", seg.Start, seg.End, err))
	}
	return nil
}

func (u Usecase) extractOnce(ctx context.Context, src string, start, end time.Duration, out string, timeout time.Duration) error {
	sctx, cancel := stageContext(ctx, timeout)
	defer cancel()
	err := u.d.Video.ExtractSegment(sctx, src, start, end, out)
	return classifyTimeout(sctx, err)
}

func (u Usecase) reframe(ctx context.Context, in SegmentInput, cut, out string) error {
	// Detector init problems are fatal for the whole task, never retried.
	detections, err := u.d.Detector.DetectFrames(ctx, cut, in.Opts.SampleStride, in.WorkDir)
	if err != nil {
		return errs.Segment(in.Index, "track", errs.ErrTrackingUnavailable, err)
	}

	var cuts []time.Duration
	if in.Opts.SceneReset {
		cuts, err = u.d.Video.DetectSceneCuts(ctx, cut, in.Opts.SceneThreshold)
		if err != nil {
			// Scene awareness is an enhancement; tracking proceeds without it.
			u.d.Log.Debug("scene detection failed", "segment", in.Index, "err", err)
			cuts = nil
		}
	}

	samples := tracking.BuildTargets(detections, in.Source, in.Opts.Preset, cuts)
	targets := tracking.Interpolate(samples, in.Source.FPS, in.Segment.Duration())
	spec := reframe.BuildSpec(targets, in.Source, in.Opts.TargetHeight, in.Opts.Codec, in.Opts.CRF)

	budget := encodeBudget(in.Segment.Duration(), in.Opts.EncodeMultiple, in.Opts.EncodeMinBudget)
	attempts := in.Opts.ReframeRetries + 1
	for attempt := 1; ; attempt++ {
		sctx, cancel := stageContext(ctx, budget)
		err = classifyTimeout(sctx, u.d.Video.RenderVertical(sctx, cut, spec, out))
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= attempts {
			break
		}
		u.d.Log.Warn("reframe encode failed, retrying",
			"segment", in.Index, "attempt", attempt, "err", err)
	}
	return errs.Segment(in.Index, "reframe", errs.ErrReframeFailed, err)
}

func (u Usecase) burn(ctx context.Context, in SegmentInput, clip string, chunks []types.SubtitleChunk, out string) error {
	outW, outH := outputSize(in)
	track := subtitles.RenderASS(chunks, subtitles.Style{
		PlayResX: outW,
		PlayResY: outH,
		FontSize: in.Opts.FontSize,
	})
	assPath := filepath.Join(in.WorkDir, "captions.ass")
	if err := os.WriteFile(assPath, []byte(track), 0o644); err != nil {
		return err
	}

	budget := encodeBudget(in.Segment.Duration(), in.Opts.EncodeMultiple, in.Opts.EncodeMinBudget)
	sctx, cancel := stageContext(ctx, budget)
	defer cancel()
	err := classifyTimeout(sctx, u.d.Video.BurnSubtitles(sctx, clip, assPath, out, in.Opts.Codec, in.Opts.CRF))
	if err != nil {
		return errs.Segment(in.Index, "burn", errs.ErrBurnFailed, err)
	}
	return nil
}

func outputSize(in SegmentInput) (int, int) {
	if in.Opts.CreateVertical {
		return reframe.OutputSize(in.Source.Width, in.Source.Height, in.Opts.TargetHeight)
	}
	return in.Source.Width, in.Source.Height
}

func encodeBudget(segDur time.Duration, multiple float64, minBudget time.Duration) time.Duration {
	if multiple <= 0 {
		multiple = 20
	}
	budget := time.Duration(float64(segDur) * multiple)
	if budget < minBudget {
		budget = minBudget
	}
	return budget
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyTimeout maps a deadline-caused failure to the timeout kind so the
// orchestrator treats it like any other process failure.
func classifyTimeout(stageCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errs.ErrTimeout, err)
	}
	return err
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
