// Package groq implements the transcription provider against Groq's
// OpenAI-compatible audio API, requesting word-level timestamps.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "whisper-large-v3"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *Adapter) Transcribe(ctx context.Context, mediaPath string) (types.Transcript, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(mediaPath))
	if err != nil {
		return types.Transcript{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return types.Transcript{}, fmt.Errorf("read media: %w", err)
	}
	for k, v := range map[string]string{
		"model":                     a.model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "word",
	} {
		if err := mw.WriteField(k, v); err != nil {
			return types.Transcript{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return types.Transcript{}, err
	}

	url := a.baseURL + "/openai/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return types.Transcript{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return types.Transcript{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return types.Transcript{}, fmt.Errorf("transcription API status %d: %s", resp.StatusCode, truncate(string(rb), 500))
	}
	return parseResponse(rb)
}

func parseResponse(raw []byte) (types.Transcript, error) {
	var out struct {
		Text  string `json:"text"`
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcription response: %w", err)
	}
	tr := types.Transcript{Text: strings.TrimSpace(out.Text)}
	for _, w := range out.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" || w.End <= w.Start {
			continue
		}
		tr.Words = append(tr.Words, types.Word{Start: w.Start, End: w.End, Word: text})
	}
	return tr, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
