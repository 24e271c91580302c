// Package gemini implements the segment analyzer provider: it asks Gemini to
// pick viral windows out of a transcript and parses the strict-JSON reply.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	client      *genai.Client
	model       string
	maxSegments int
}

func New(ctx context.Context, apiKey, model string, maxSegments int) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxSegments <= 0 {
		maxSegments = 5
	}
	return &Adapter{client: client, model: model, maxSegments: maxSegments}, nil
}

func (a *Adapter) Analyze(ctx context.Context, tr types.Transcript, videoDuration time.Duration) ([]types.Segment, error) {
	if strings.TrimSpace(tr.Text) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	prompt := buildPrompt(tr, a.maxSegments, videoDuration)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze transcript: %w", err)
	}
	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("empty analysis response")
	}
	return ParseSegments(text, videoDuration)
}

func buildPrompt(tr types.Transcript, maxSegments int, dur time.Duration) string {
	return fmt.Sprintf(`You are a short-form video editor. Below is the transcript of a %.0f second video with per-word timestamps available.

Pick up to %d self-contained, high-retention segments worth publishing as standalone vertical clips. Each segment must start and end at natural speech boundaries and run 15-90 seconds.

Respond with a strict JSON array, nothing else:
[{"start": <seconds>, "end": <seconds>, "title": "<short hook title>"}]

Transcript:
%s`, dur.Seconds(), maxSegments, tr.Text)
}

// ParseSegments extracts the JSON array from a model reply (tolerating code
// fences), validates each window against the source duration and returns the
// survivors sorted by start time.
func ParseSegments(text string, videoDuration time.Duration) ([]types.Segment, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in analysis response")
	}

	var raw []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Title string  `json:"title"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}

	var out []types.Segment
	for _, r := range raw {
		s := time.Duration(r.Start * float64(time.Second))
		e := time.Duration(r.End * float64(time.Second))
		if s < 0 || e <= s {
			continue
		}
		if videoDuration > 0 && e > videoDuration {
			continue
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = fmt.Sprintf("Segment %d", len(out)+1)
		}
		out = append(out, types.Segment{Start: s, End: e, Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
