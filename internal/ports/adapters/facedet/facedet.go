// Package facedet wraps an external face-detection binary. The detector
// samples frames at a fixed stride and writes per-frame detections as JSON;
// this adapter runs it and parses the output.
package facedet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Verify checks the detector assets up front. A missing binary or model will
// fail identically on every retry, so the task must abort immediately.
func (a *Adapter) Verify() error {
	if _, err := exec.LookPath(a.bin); err != nil {
		return fmt.Errorf("face detector binary %q: %w", a.bin, err)
	}
	if _, err := os.Stat(a.model); err != nil {
		return fmt.Errorf("face detector model %q: %w", a.model, err)
	}
	return nil
}

func (a *Adapter) DetectFrames(ctx context.Context, videoPath string, stride time.Duration, workDir string) ([]types.FrameDetections, error) {
	outPath := filepath.Join(workDir, "detections.json")
	args := []string{
		"-m", a.model,
		"-i", videoPath,
		"--stride-ms", strconv.Itoa(int(stride.Milliseconds())),
		"-o", outPath,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("face detector failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	var frames []types.FrameDetections
	if err := json.Unmarshal(jb, &frames); err != nil {
		return nil, fmt.Errorf("parse detections: %w", err)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].TS < frames[j].TS })
	return frames, nil
}
