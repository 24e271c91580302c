//go:build integration

package itest

import (
	"os/exec"
	"strconv"
	"testing"
)

// makeFixture renders a synthetic test video: a moving box on a colored
// background with a sine-tone audio track, h264 in an mp4 container.
func makeFixture(t *testing.T, path string, seconds int) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "testsrc2=size=1280x720:rate=30",
		"-f", "lavfi",
		"-i", "sine=frequency=440",
		"-t", strconv.Itoa(seconds),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
