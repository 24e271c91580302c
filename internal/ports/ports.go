package ports

import (
	"context"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// VideoTool covers every ffmpeg/ffprobe interaction the pipeline performs.
type VideoTool interface {
	Probe(ctx context.Context, path string) (types.VideoInfo, error)
	// ExtractSegment cuts [start, end) out of src via stream copy. The output
	// may land on the nearest keyframe, so callers tolerate sub-second slop.
	ExtractSegment(ctx context.Context, src string, start, end time.Duration, out string) error
	// RenderVertical performs the single quality-affecting re-encode of a clip.
	RenderVertical(ctx context.Context, in string, spec types.RenderSpec, out string) error
	BurnSubtitles(ctx context.Context, in, assPath, out, codec string, crf int) error
	DetectSceneCuts(ctx context.Context, path string, threshold float64) ([]time.Duration, error)
}

// FaceDetector locates faces on sampled frames of a clip. Per-frame misses
// are not errors; a returned error means the detector itself is unusable.
type FaceDetector interface {
	Verify() error
	DetectFrames(ctx context.Context, videoPath string, stride time.Duration, workDir string) ([]types.FrameDetections, error)
}

// Transcriber produces word-level timestamps for a media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (types.Transcript, error)
}

// SegmentAnalyzer picks viral windows out of a transcript.
type SegmentAnalyzer interface {
	Analyze(ctx context.Context, tr types.Transcript, videoDuration time.Duration) ([]types.Segment, error)
}

// Downloader fetches a remote source video into destDir and returns its path.
type Downloader interface {
	Download(ctx context.Context, url, destDir, quality string) (string, error)
}
