//go:build integration

package itest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipforge/internal/types"
)

// TestE2E_LocalSegments runs the whole pipeline on a synthetic source with
// explicit segments, horizontal framing and no subtitles, so it needs only
// ffmpeg and no network or detector assets.
func TestE2E_LocalSegments(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.mp4")
	makeFixture(t, src, 30)

	outDir := filepath.Join(tmp, "out")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	app := config.Config{
		Output: config.OutputConfig{CreateVertical: false, ExportCodec: "h264", CRF: 23},
		Task: config.TaskConfig{
			Workers:         2,
			WorkDir:         filepath.Join(tmp, "work"),
			ExtractTimeout:  time.Minute,
			EncodeMultiple:  20,
			EncodeMinBudget: time.Minute,
		},
	}
	deps := pipeline.Deps{
		Video: ffmpeg.New("", ""),
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cfg := pipeline.Config{
		Input:  src,
		OutDir: outDir,
		Segments: []types.Segment{
			{Start: 2 * time.Second, End: 10 * time.Second, Title: "first"},
			{Start: 15 * time.Second, End: 25 * time.Second, Title: "second"},
		},
		App: app,
	}

	result, err := pipeline.Run(ctx, deps, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(result.Clips) != 2 {
		t.Fatalf("got %d clips, failures: %+v", len(result.Clips), result.Failures)
	}
	for _, c := range result.Clips {
		sec, err := probeDurationSeconds(c.Path)
		if err != nil {
			t.Fatal(err)
		}
		want := c.EndSec - c.StartSec
		if sec < want-1.5 || sec > want+1.5 {
			t.Fatalf("clip %s runs %.2fs, want ~%.2fs", c.Path, sec, want)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "manifest.json")); err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
}
