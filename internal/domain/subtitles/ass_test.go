package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

func TestRenderASS_TrackShape(t *testing.T) {
	chunks := []types.SubtitleChunk{
		{Start: 0, End: time.Second, Text: "hello world!"},
		{Start: 1050 * time.Millisecond, End: 2 * time.Second, Text: "two\nlines"},
	}
	ass := RenderASS(chunks, Style{PlayResX: 608, PlayResY: 1080})

	for _, want := range []string{
		"PlayResX: 608",
		"PlayResY: 1080",
		"Style: Vertical",
		"Dialogue: 0,0:00:00.00,0:00:01.00,Vertical",
		"hello world!",
		"two\\Nlines",
	} {
		if !strings.Contains(ass, want) {
			t.Fatalf("missing %q in track:\n%s", want, ass)
		}
	}
}

func TestRenderASS_SanitizesOverrideBraces(t *testing.T) {
	chunks := []types.SubtitleChunk{{Start: 0, End: time.Second, Text: `{\b1}bold`}}
	ass := RenderASS(chunks, Style{PlayResX: 608, PlayResY: 1080})
	if strings.Contains(ass, "{\\b1}") {
		t.Fatalf("override tags survived sanitizing:\n%s", ass)
	}
}

func TestRenderASS_SkipsEmptyChunks(t *testing.T) {
	chunks := []types.SubtitleChunk{{Start: 0, End: time.Second, Text: "   "}}
	ass := RenderASS(chunks, Style{PlayResX: 608, PlayResY: 1080})
	if strings.Contains(ass, "Dialogue:") {
		t.Fatalf("blank chunk rendered a dialogue line:\n%s", ass)
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
	if got := assTime(-time.Second); got != "0:00:00.00" {
		t.Fatalf("negative time must clamp to zero, got %s", got)
	}
}

func TestStyleDefaults_ScaleWithResolution(t *testing.T) {
	st := Style{PlayResX: 608, PlayResY: 1080}
	if st.fontSize() != 48 {
		t.Fatalf("derived font size %d, want 48", st.fontSize())
	}
	if st.marginV() != 90 {
		t.Fatalf("derived margin %d, want 90", st.marginV())
	}
	fixed := Style{PlayResY: 1080, FontSize: 60, MarginV: 40}
	if fixed.fontSize() != 60 || fixed.marginV() != 40 {
		t.Fatalf("explicit style overridden: size=%d margin=%d", fixed.fontSize(), fixed.marginV())
	}
}
