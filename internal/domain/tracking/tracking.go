// Package tracking turns raw per-frame face detections into a smoothed,
// gap-free FrameTarget sequence the reframer can follow. It is a pure
// transform over ordered records so the smoothing behavior is testable
// without any video I/O.
package tracking

import (
	"math"
	"sort"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// Preset bundles the constants of one smoothing strength. Higher factor and
// smaller jump distance trade responsiveness for stability.
type Preset struct {
	Name      string
	Factor    float64 // exponential smoothing weight on the previous position
	MaxJumpPx float64 // hard cap on per-sample movement
	Window    int     // moving-average window over raw centers
}

var presets = map[string]Preset{
	"low":       {Name: "low", Factor: 0.3, MaxJumpPx: 80, Window: 3},
	"medium":    {Name: "medium", Factor: 0.75, MaxJumpPx: 50, Window: 5},
	"high":      {Name: "high", Factor: 0.9, MaxJumpPx: 25, Window: 8},
	"very_high": {Name: "very_high", Factor: 0.95, MaxJumpPx: 15, Window: 12},
}

// PresetFor resolves a smoothing strength name, falling back to medium for
// unknown values.
func PresetFor(name string) Preset {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets["medium"]
}

// scoring weights for multi-face candidate selection. Proximity to the
// previous target dominates so the tracker does not flip between subjects.
const (
	weightSize      = 0.35
	weightCenter    = 0.25
	weightStability = 0.40
)

type state struct {
	preset  Preset
	prevX   float64
	prevY   float64
	started bool
	recent  []point
}

type point struct{ x, y float64 }

func (s *state) reset() {
	s.started = false
	s.recent = s.recent[:0]
}

// pickCandidate chooses one face from a sampled frame. Tie-break rule: a
// continuity-weighted score over face size, horizontal centrality and
// distance to the previous target (largest-box behavior falls out of the
// size term when there is no history).
func (s *state) pickCandidate(faces []types.Face, srcW, srcH float64) (types.Face, bool) {
	if len(faces) == 0 {
		return types.Face{}, false
	}
	if len(faces) == 1 {
		return faces[0], true
	}

	best := faces[0]
	bestScore := math.Inf(-1)
	diag := math.Hypot(srcW, srcH)
	for _, f := range faces {
		sizeScore := f.Area() / (srcW * srcH)
		centerScore := 1 - math.Abs(f.CenterX()-srcW/2)/(srcW/2)
		stabilityScore := 0.0
		if s.started {
			dist := math.Hypot(f.CenterX()-s.prevX, f.CenterY()-s.prevY)
			stabilityScore = math.Max(0, 1-dist/(diag/3))
		}
		score := sizeScore*weightSize + centerScore*weightCenter + stabilityScore*weightStability
		if score > bestScore {
			bestScore = score
			best = f
		}
	}
	return best, true
}

// smooth applies the three-stage filter: moving average over recent raw
// centers, max-jump clamp, then exponential smoothing toward the new value.
func (s *state) smooth(x, y float64) (float64, float64) {
	if !s.started {
		s.started = true
		s.prevX, s.prevY = x, y
		s.recent = append(s.recent, point{x, y})
		return x, y
	}

	s.recent = append(s.recent, point{x, y})
	if len(s.recent) > s.preset.Window {
		s.recent = s.recent[1:]
	}
	var ax, ay float64
	for _, p := range s.recent {
		ax += p.x
		ay += p.y
	}
	ax /= float64(len(s.recent))
	ay /= float64(len(s.recent))

	dist := math.Hypot(ax-s.prevX, ay-s.prevY)
	if dist > s.preset.MaxJumpPx {
		ax = s.prevX + (ax-s.prevX)/dist*s.preset.MaxJumpPx
		ay = s.prevY + (ay-s.prevY)/dist*s.preset.MaxJumpPx
	}

	sx := s.prevX*s.preset.Factor + ax*(1-s.preset.Factor)
	sy := s.prevY*s.preset.Factor + ay*(1-s.preset.Factor)
	s.prevX, s.prevY = sx, sy
	return sx, sy
}

// BuildTargets resolves sampled detections into one smoothed target per
// sampled frame. Frames with no detection carry the previous target forward
// with Interpolated set; before the first detection the frame center is used.
// Smoothing state restarts at each scene cut so the window does not slide
// across an edit.
func BuildTargets(frames []types.FrameDetections, vi types.VideoInfo, p Preset, sceneCuts []time.Duration) []types.FrameTarget {
	srcW := float64(vi.Width)
	srcH := float64(vi.Height)
	st := state{preset: p}

	cuts := append([]time.Duration(nil), sceneCuts...)
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	out := make([]types.FrameTarget, 0, len(frames))
	for _, fr := range frames {
		ts := time.Duration(fr.TS * float64(time.Second))
		for len(cuts) > 0 && ts >= cuts[0] {
			st.reset()
			cuts = cuts[1:]
		}

		face, ok := st.pickCandidate(fr.Faces, srcW, srcH)
		var rawX, rawY, conf float64
		interp := false
		switch {
		case ok:
			rawX, rawY = face.CenterX(), face.CenterY()
			conf = face.Confidence
		case st.started:
			rawX, rawY = st.prevX, st.prevY
			interp = true
		default:
			rawX, rawY = srcW/2, srcH/2
			interp = true
		}

		sx, sy := st.smooth(rawX, rawY)
		sx = clamp(sx, 0, srcW)
		sy = clamp(sy, 0, srcH)
		out = append(out, types.FrameTarget{
			Index:        fr.Index,
			TS:           ts,
			X:            sx,
			Y:            sy,
			Confidence:   conf,
			Interpolated: interp,
		})
	}
	return out
}

// Interpolate expands sampled targets to one entry per output frame by linear
// interpolation between the nearest smoothed samples. The result covers the
// whole clip duration with no gaps. No samples yields nil so the reframer
// falls back to its centered crop.
func Interpolate(samples []types.FrameTarget, fps float64, duration time.Duration) []types.FrameTarget {
	if len(samples) == 0 || fps <= 0 || duration <= 0 {
		return nil
	}
	total := int(math.Ceil(duration.Seconds() * fps))
	if total <= 0 {
		total = 1
	}
	out := make([]types.FrameTarget, total)
	for i := 0; i < total; i++ {
		ts := time.Duration(float64(i) / fps * float64(time.Second))
		out[i] = targetAt(samples, ts)
		out[i].Index = i
		out[i].TS = ts
	}
	return out
}

func targetAt(samples []types.FrameTarget, ts time.Duration) types.FrameTarget {
	if ts <= samples[0].TS {
		return samples[0]
	}
	last := samples[len(samples)-1]
	if ts >= last.TS {
		return last
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i].TS >= ts })
	a, b := samples[i-1], samples[i]
	span := b.TS - a.TS
	if span <= 0 {
		return a
	}
	frac := float64(ts-a.TS) / float64(span)
	return types.FrameTarget{
		X:            a.X + (b.X-a.X)*frac,
		Y:            a.Y + (b.Y-a.Y)*frac,
		Confidence:   math.Min(a.Confidence, b.Confidence),
		Interpolated: a.Interpolated || b.Interpolated,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
