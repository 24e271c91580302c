// Package reframe computes per-frame 9:16 crop geometry and compresses it
// into the command list that drives a single ffmpeg encode pass.
package reframe

import (
	"math"

	"github.com/clipforge/clipforge/internal/types"
)

const (
	aspectW = 9
	aspectH = 16
)

// WindowSize returns the largest 9:16 rectangle that fits inside a source
// frame. Dimensions are rounded down to even values for encoder compatibility.
func WindowSize(srcW, srcH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	if float64(srcW)/float64(srcH) > float64(aspectW)/float64(aspectH) {
		// Source is wider than 9:16: full height, cropped width.
		w := even(int(math.Round(float64(srcH) * aspectW / aspectH)))
		if w > srcW {
			w = even(srcW)
		}
		return w, even(srcH)
	}
	h := even(int(math.Round(float64(srcW) * aspectH / aspectW)))
	if h > srcH {
		h = even(srcH)
	}
	return even(srcW), h
}

// WindowAt places a fixed-size crop window centered on a target, shifted
// inward where the target sits near an edge. Clamping moves the window; it
// never changes its size or aspect ratio.
func WindowAt(t types.FrameTarget, srcW, srcH, cropW, cropH int) types.CropWindow {
	x := int(math.Round(t.X)) - cropW/2
	y := int(math.Round(t.Y)) - cropH/2
	if x < 0 {
		x = 0
	}
	if x+cropW > srcW {
		x = srcW - cropW
	}
	if y < 0 {
		y = 0
	}
	if y+cropH > srcH {
		y = srcH - cropH
	}
	return types.CropWindow{X: x, Y: y, W: cropW, H: cropH}
}

// OutputSize resolves the encoded frame dimensions: the target height capped
// at the crop height, width derived from the 9:16 ratio, both rounded to even.
// The subtitle renderer sizes its PlayRes from the same numbers.
func OutputSize(srcW, srcH, targetHeight int) (int, int) {
	_, cropH := WindowSize(srcW, srcH)
	outH := targetHeight
	if outH <= 0 || outH > cropH {
		outH = cropH
	}
	outH = even(outH)
	outW := even(int(math.Round(float64(outH) * aspectW / aspectH)))
	return outW, outH
}

// BuildSpec turns a full per-frame target sequence into a RenderSpec. Runs of
// identical positions collapse into a single command, so a static shot costs
// one command regardless of length.
func BuildSpec(targets []types.FrameTarget, vi types.VideoInfo, targetHeight int, codec string, crf int) types.RenderSpec {
	cropW, cropH := WindowSize(vi.Width, vi.Height)
	outW, outH := OutputSize(vi.Width, vi.Height, targetHeight)

	spec := types.RenderSpec{
		CropW: cropW,
		CropH: cropH,
		OutW:  outW,
		OutH:  outH,
		Codec: codec,
		CRF:   crf,
	}

	lastX, lastY := -1, -1
	for _, t := range targets {
		win := WindowAt(t, vi.Width, vi.Height, cropW, cropH)
		if win.X == lastX && win.Y == lastY {
			continue
		}
		spec.Commands = append(spec.Commands, types.CropCommand{At: t.TS, X: win.X, Y: win.Y})
		lastX, lastY = win.X, win.Y
	}
	if len(spec.Commands) == 0 {
		// Degenerate but valid: no targets means a fixed center crop.
		spec.Commands = []types.CropCommand{{
			At: 0,
			X:  (vi.Width - cropW) / 2,
			Y:  (vi.Height - cropH) / 2,
		}}
	}
	return spec
}

// CenteredSpec is the fallback when tracking is disabled: a static crop on
// the frame's horizontal midpoint.
func CenteredSpec(vi types.VideoInfo, targetHeight int, codec string, crf int) types.RenderSpec {
	center := types.FrameTarget{X: float64(vi.Width) / 2, Y: float64(vi.Height) / 2, TS: 0}
	return BuildSpec([]types.FrameTarget{center}, vi, targetHeight, codec, crf)
}

func even(v int) int {
	if v%2 != 0 {
		v--
	}
	return v
}
