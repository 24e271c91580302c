//go:build integration

package itest

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/domain/reframe"
	"github.com/clipforge/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipforge/internal/types"
)

func TestFFmpeg_ProbeAndExtract(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.mp4")
	makeFixture(t, src, 20)

	a := ffmpeg.New("", "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	vi, err := a.Probe(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if vi.Width != 1280 || vi.Height != 720 {
		t.Fatalf("probed %dx%d", vi.Width, vi.Height)
	}
	if vi.FPS < 29 || vi.FPS > 31 {
		t.Fatalf("probed fps %v", vi.FPS)
	}

	cut := filepath.Join(tmp, "cut.mp4")
	if err := a.ExtractSegment(ctx, src, 5*time.Second, 12*time.Second, cut); err != nil {
		t.Fatal(err)
	}
	sec, err := probeDurationSeconds(cut)
	if err != nil {
		t.Fatal(err)
	}
	// Stream copy lands on keyframes; allow a second of slop either way.
	if math.Abs(sec-7) > 1 {
		t.Fatalf("cut runs %.2fs, want ~7s", sec)
	}
}

func TestFFmpeg_RenderVerticalGeometry(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.mp4")
	makeFixture(t, src, 6)

	a := ffmpeg.New("", "")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	vi, err := a.Probe(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	spec := reframe.CenteredSpec(vi, 720, "h264", 23)
	// Add a mid-clip reposition to exercise the sendcmd path.
	spec.Commands = append(spec.Commands, types.CropCommand{
		At: 3 * time.Second,
		X:  spec.Commands[0].X + 100,
		Y:  spec.Commands[0].Y,
	})

	out := filepath.Join(tmp, "vertical.mp4")
	if err := a.RenderVertical(ctx, src, spec, out); err != nil {
		t.Fatal(err)
	}
	w, h, err := probeSize(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != spec.OutW || h != spec.OutH {
		t.Fatalf("rendered %dx%d, spec says %dx%d", w, h, spec.OutW, spec.OutH)
	}
	if math.Abs(float64(w)/float64(h)-9.0/16.0)*float64(h) > 2 {
		t.Fatalf("output %dx%d is not 9:16", w, h)
	}
}

func TestFFmpeg_SceneCutsOnStaticSource(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.mp4")
	makeFixture(t, src, 6)

	a := ffmpeg.New("", "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cuts, err := a.DetectSceneCuts(ctx, src, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	// The synthetic pattern has no hard cuts at a high threshold.
	if len(cuts) > 2 {
		t.Fatalf("found %d cuts in a continuous source", len(cuts))
	}
}
