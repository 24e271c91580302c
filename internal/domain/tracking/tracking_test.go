package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

var testVideo = types.VideoInfo{Width: 1920, Height: 1080, FPS: 30}

func frame(idx int, ts float64, faces ...types.Face) types.FrameDetections {
	return types.FrameDetections{Index: idx, TS: ts, Faces: faces}
}

func face(cx, cy, w, h float64) types.Face {
	return types.Face{X: cx - w/2, Y: cy - h/2, W: w, H: h, Confidence: 0.9}
}

func TestBuildTargets_NoDetectionsFallBackToCenter(t *testing.T) {
	frames := []types.FrameDetections{frame(0, 0), frame(1, 0.2)}
	got := BuildTargets(frames, testVideo, PresetFor("medium"), nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(got))
	}
	for _, tg := range got {
		if tg.X != 960 || tg.Y != 540 {
			t.Fatalf("expected frame center (960,540), got (%v,%v)", tg.X, tg.Y)
		}
		if !tg.Interpolated {
			t.Fatal("center fallback must be marked interpolated")
		}
	}
}

func TestBuildTargets_MissingFrameCarriesForward(t *testing.T) {
	frames := []types.FrameDetections{
		frame(0, 0, face(400, 300, 120, 120)),
		frame(1, 0.2),
	}
	got := BuildTargets(frames, testVideo, PresetFor("medium"), nil)
	if got[0].Interpolated {
		t.Fatal("detected frame must not be interpolated")
	}
	if !got[1].Interpolated {
		t.Fatal("detection gap must be marked interpolated")
	}
	if got[1].X != got[0].X || got[1].Y != got[0].Y {
		t.Fatalf("gap target must hold position: got (%v,%v) want (%v,%v)",
			got[1].X, got[1].Y, got[0].X, got[0].Y)
	}
}

func TestBuildTargets_JumpIsClamped(t *testing.T) {
	p := PresetFor("high")
	frames := []types.FrameDetections{
		frame(0, 0, face(200, 540, 120, 120)),
		frame(1, 0.2, face(1700, 540, 120, 120)),
	}
	got := BuildTargets(frames, testVideo, p, nil)
	moved := math.Hypot(got[1].X-got[0].X, got[1].Y-got[0].Y)
	if moved > p.MaxJumpPx {
		t.Fatalf("moved %.1fpx in one sample, preset caps at %.1fpx", moved, p.MaxJumpPx)
	}
}

func TestBuildTargets_SceneCutResetsSmoothing(t *testing.T) {
	p := PresetFor("very_high")
	frames := []types.FrameDetections{
		frame(0, 0, face(200, 540, 120, 120)),
		frame(1, 0.2, face(200, 540, 120, 120)),
		frame(2, 1.0, face(1700, 540, 120, 120)),
	}
	cuts := []time.Duration{time.Second}
	got := BuildTargets(frames, testVideo, p, cuts)
	// With the reset the post-cut target snaps to the new subject instead of
	// easing over from the old position.
	if math.Abs(got[2].X-1700) > 1 {
		t.Fatalf("expected snap to x=1700 after scene cut, got %v", got[2].X)
	}

	noCuts := BuildTargets(frames, testVideo, p, nil)
	if noCuts[2].X >= 1699 {
		t.Fatalf("without a cut the clamp must hold the jump back, got x=%v", noCuts[2].X)
	}
}

func TestBuildTargets_ContinuityBeatsSize(t *testing.T) {
	big := face(960, 540, 400, 400)
	small := face(1700, 500, 100, 100)
	frames := []types.FrameDetections{
		frame(0, 0, small),
		frame(1, 0.2, big, small),
	}
	got := BuildTargets(frames, testVideo, PresetFor("low"), nil)
	// The tracker locked onto the small face first; the big centered face
	// must not steal the target on the next sample.
	if got[1].X < 1000 {
		t.Fatalf("tracker flipped to the larger face: x=%v", got[1].X)
	}
}

func TestBuildTargets_FirstPickPrefersLargest(t *testing.T) {
	big := face(600, 540, 400, 400)
	small := face(1500, 540, 80, 80)
	got := BuildTargets([]types.FrameDetections{frame(0, 0, small, big)}, testVideo, PresetFor("medium"), nil)
	if math.Abs(got[0].X-600) > 1 {
		t.Fatalf("expected largest face to win with no history, got x=%v", got[0].X)
	}
}

func TestInterpolate_LinearBetweenSamples(t *testing.T) {
	samples := []types.FrameTarget{
		{TS: 0, X: 100, Y: 100},
		{TS: time.Second, X: 300, Y: 100},
	}
	got := Interpolate(samples, 2, time.Second)
	if len(got) != 2 {
		t.Fatalf("expected 2 frames at 2fps over 1s, got %d", len(got))
	}
	if got[0].X != 100 {
		t.Fatalf("frame 0: got x=%v want 100", got[0].X)
	}
	if math.Abs(got[1].X-200) > 0.001 {
		t.Fatalf("frame at 0.5s: got x=%v want 200", got[1].X)
	}
}

func TestInterpolate_CoversWholeClip(t *testing.T) {
	samples := []types.FrameTarget{{TS: 0, X: 500, Y: 500}}
	got := Interpolate(samples, 30, 2*time.Second)
	if len(got) != 60 {
		t.Fatalf("expected 60 frames, got %d", len(got))
	}
	for i, tg := range got {
		if tg.Index != i {
			t.Fatalf("frame %d has index %d", i, tg.Index)
		}
		if tg.X != 500 {
			t.Fatalf("frame %d drifted to x=%v", i, tg.X)
		}
	}
}

func TestInterpolate_NoSamplesYieldsNothing(t *testing.T) {
	// A clip shorter than one sample stride can legitimately produce zero
	// sampled frames; the reframer then centers the crop instead of
	// following zero-valued targets to the left edge.
	if got := Interpolate(nil, 30, 2*time.Second); got != nil {
		t.Fatalf("expected no targets, got %d", len(got))
	}
	empty := BuildTargets(nil, testVideo, PresetFor("medium"), nil)
	if got := Interpolate(empty, 30, 2*time.Second); got != nil {
		t.Fatalf("expected no targets from empty detections, got %d", len(got))
	}
}

func TestPresetFor_UnknownFallsBackToMedium(t *testing.T) {
	if got := PresetFor("bogus"); got.Name != "medium" {
		t.Fatalf("expected medium fallback, got %s", got.Name)
	}
	if got := PresetFor("very_high"); got.Factor != 0.95 {
		t.Fatalf("unexpected very_high factor %v", got.Factor)
	}
}
