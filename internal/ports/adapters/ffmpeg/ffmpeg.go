// Package ffmpeg shells out to ffmpeg/ffprobe for every media operation:
// stream-copy extraction, the single reframe encode, subtitle burn-in,
// probing and scene-cut detection.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(path, b)
}

func parseProbe(path string, raw []byte) (types.VideoInfo, error) {
	var probe struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			FrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	vi := types.VideoInfo{Path: path, Container: probe.Format.FormatName}
	if sec, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		vi.Duration = time.Duration(sec * float64(time.Second))
	}
	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		vi.Width = s.Width
		vi.Height = s.Height
		vi.FPS = parseFrameRate(s.FrameRate)
		break
	}
	if vi.Width == 0 || vi.Height == 0 {
		return types.VideoInfo{}, fmt.Errorf("no video stream in %s", path)
	}
	return vi, nil
}

func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// ExtractSegment cuts via stream copy, then validates the container. Cuts
// land on the nearest keyframe so the caller tolerates boundary slop.
func (a *Adapter) ExtractSegment(ctx context.Context, src string, start, end time.Duration, out string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-ss", fmtSeconds(start),
		"-i", src,
		"-t", fmtSeconds(end-start),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract [%s-%s]: %w\n%s", start, end, err, string(b))
	}
	return validateMP4(out)
}

// RenderVertical applies the crop plan and scales to the output size in one
// encode pass. Crop repositioning is driven through a sendcmd file so the
// whole clip costs exactly one re-encode; audio passes through untouched.
func (a *Adapter) RenderVertical(ctx context.Context, in string, spec types.RenderSpec, out string) error {
	if len(spec.Commands) == 0 {
		return fmt.Errorf("render spec has no crop commands")
	}
	cmdFile := out + ".cmds"
	if err := os.WriteFile(cmdFile, []byte(sendcmdScript(spec.Commands)), 0o644); err != nil {
		return err
	}
	defer os.Remove(cmdFile)

	first := spec.Commands[0]
	filter := fmt.Sprintf(
		"sendcmd=f=%s,crop@v=w=%d:h=%d:x=%d:y=%d,scale=%d:%d,setsar=1",
		escapeFilterPath(cmdFile),
		spec.CropW, spec.CropH, first.X, first.Y,
		spec.OutW, spec.OutH,
	)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", in,
		"-vf", filter,
		"-c:v", codecName(spec.Codec),
		"-preset", "medium",
		"-crf", strconv.Itoa(spec.CRF),
		"-c:a", "copy",
		"-movflags", "+faststart",
		out,
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(out) // never expose a partially written file
		return fmt.Errorf("ffmpeg reframe: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, assPath, out, codec string, crf int) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", in,
		"-vf", "ass="+escapeFilterPath(assPath),
		"-c:v", codecName(codec),
		"-crf", strconv.Itoa(crf),
		"-c:a", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(out)
		return fmt.Errorf("ffmpeg burn subtitles: %w\n%s", err, string(b))
	}
	return nil
}

// DetectSceneCuts runs the scene filter and parses hit timestamps from
// showinfo output on stderr.
func (a *Adapter) DetectSceneCuts(ctx context.Context, path string, threshold float64) ([]time.Duration, error) {
	filter := fmt.Sprintf("select='gt(scene,%s)',showinfo",
		strconv.FormatFloat(threshold, 'f', -1, 64))
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner",
		"-i", path,
		"-vf", filter,
		"-f", "null", "-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detect: %w\n%s", err, string(b))
	}
	return parseSceneCuts(string(b)), nil
}

func parseSceneCuts(output string) []time.Duration {
	var cuts []time.Duration
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		rest := line[strings.Index(line, "pts_time:")+len("pts_time:"):]
		field := rest
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			field = rest[:i]
		}
		if sec, err := strconv.ParseFloat(field, 64); err == nil {
			cuts = append(cuts, time.Duration(sec*float64(time.Second)))
		}
	}
	return cuts
}

// sendcmdScript renders one reposition line per command. Commands after the
// first drive the crop filter's x/y while width/height stay fixed.
func sendcmdScript(cmds []types.CropCommand) string {
	var b strings.Builder
	for _, c := range cmds {
		fmt.Fprintf(&b, "%s crop@v x %d, crop@v y %d;\n", fmtSeconds(c.At), c.X, c.Y)
	}
	return b.String()
}

func codecName(codec string) string {
	switch codec {
	case "h265", "hevc":
		return "libx265"
	case "av1":
		return "libaom-av1"
	default:
		return "libx264"
	}
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
