// Package providers implements ordered fallback chains over the external AI
// collaborators: each capability tries its implementations in sequence until
// one succeeds.
package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
)

// DownloadChain tries each downloader in order.
type DownloadChain struct {
	Providers []ports.Downloader
	Log       *slog.Logger
}

func (c DownloadChain) Download(ctx context.Context, url, destDir, quality string) (string, error) {
	var errs []error
	for i, p := range c.Providers {
		path, err := p.Download(ctx, url, destDir, quality)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.Log.Warn("download provider failed", "provider", i, "err", err)
		errs = append(errs, err)
	}
	return "", errors.Join(append([]error{errors.New("all download providers failed")}, errs...)...)
}

// TranscribeChain tries each transcriber in order.
type TranscribeChain struct {
	Providers []ports.Transcriber
	Log       *slog.Logger
}

func (c TranscribeChain) Transcribe(ctx context.Context, mediaPath string) (types.Transcript, error) {
	var errs []error
	for i, p := range c.Providers {
		tr, err := p.Transcribe(ctx, mediaPath)
		if err == nil {
			return tr, nil
		}
		if ctx.Err() != nil {
			return types.Transcript{}, ctx.Err()
		}
		c.Log.Warn("transcription provider failed", "provider", i, "err", err)
		errs = append(errs, err)
	}
	return types.Transcript{}, errors.Join(append([]error{errors.New("all transcription providers failed")}, errs...)...)
}

// AnalyzeChain tries each analyzer in order.
type AnalyzeChain struct {
	Providers []ports.SegmentAnalyzer
	Log       *slog.Logger
}

func (c AnalyzeChain) Analyze(ctx context.Context, tr types.Transcript, videoDuration time.Duration) ([]types.Segment, error) {
	var errs []error
	for i, p := range c.Providers {
		segs, err := p.Analyze(ctx, tr, videoDuration)
		if err == nil {
			return segs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.Log.Warn("analysis provider failed", "provider", i, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{errors.New("all analysis providers failed")}, errs...)...)
}
