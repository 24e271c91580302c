package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTranscriber struct {
	tr  types.Transcript
	err error
}

func (f fakeTranscriber) Transcribe(context.Context, string) (types.Transcript, error) {
	return f.tr, f.err
}

func TestTranscribeChain_FallsThroughToNextProvider(t *testing.T) {
	want := types.Transcript{Text: "hello"}
	chain := TranscribeChain{
		Providers: []ports.Transcriber{
			fakeTranscriber{err: errors.New("rate limited")},
			fakeTranscriber{tr: want},
		},
		Log: discard(),
	}
	got, err := chain.Transcribe(context.Background(), "a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != want.Text {
		t.Fatalf("got %q", got.Text)
	}
}

func TestTranscribeChain_AggregatesAllFailures(t *testing.T) {
	first := errors.New("rate limited")
	second := errors.New("bad gateway")
	chain := TranscribeChain{
		Providers: []ports.Transcriber{fakeTranscriber{err: first}, fakeTranscriber{err: second}},
		Log:       discard(),
	}
	_, err := chain.Transcribe(context.Background(), "a.mp4")
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("aggregate must retain each cause: %v", err)
	}
}

func TestTranscribeChain_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chain := TranscribeChain{
		Providers: []ports.Transcriber{
			fakeTranscriber{err: errors.New("whatever")},
			fakeTranscriber{tr: types.Transcript{Text: "too late"}},
		},
		Log: discard(),
	}
	_, err := chain.Transcribe(ctx, "a.mp4")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

type fakeAnalyzer struct {
	segs []types.Segment
	err  error
}

func (f fakeAnalyzer) Analyze(context.Context, types.Transcript, time.Duration) ([]types.Segment, error) {
	return f.segs, f.err
}

func TestAnalyzeChain_FirstSuccessWins(t *testing.T) {
	want := []types.Segment{{Start: 0, End: time.Minute, Title: "x"}}
	chain := AnalyzeChain{
		Providers: []ports.SegmentAnalyzer{fakeAnalyzer{segs: want}, fakeAnalyzer{err: errors.New("unused")}},
		Log:       discard(),
	}
	got, err := chain.Analyze(context.Background(), types.Transcript{}, time.Hour)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v", got, err)
	}
}
