// Package ytdlp downloads source videos with yt-dlp, remuxed to MP4.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// formatFor maps a quality tier to a yt-dlp format selector.
func formatFor(quality string) string {
	switch quality {
	case "4k":
		return "bv*[height<=2160]+ba/b[height<=2160]"
	case "1440p":
		return "bv*[height<=1440]+ba/b[height<=1440]"
	case "1080p":
		return "bv*[height<=1080]+ba/b[height<=1080]"
	case "720p":
		return "bv*[height<=720]+ba/b[height<=720]"
	default:
		return "bv*+ba/b"
	}
}

func (a *Adapter) Download(ctx context.Context, url, destDir, quality string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(destDir, "source.mp4")
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", formatFor(quality),
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", out,
		url,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w\n%s", err, string(b))
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		return "", fmt.Errorf("yt-dlp produced no usable file at %s", out)
	}
	return out, nil
}
