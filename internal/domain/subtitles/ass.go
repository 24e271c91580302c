package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// Style controls the burned-in look. Defaults target small mobile screens:
// bold sans-serif, white on a semi-transparent dark box, bottom-anchored.
type Style struct {
	PlayResX int
	PlayResY int
	FontName string
	// FontSize in PlayRes pixels. Zero derives it from the video height so
	// text scales with resolution.
	FontSize int
	MarginV  int
}

// fontHeightPct is the default font size as a share of output height.
const fontHeightPct = 0.045

func (s Style) fontSize() int {
	if s.FontSize > 0 {
		return s.FontSize
	}
	return int(float64(s.PlayResY) * fontHeightPct)
}

func (s Style) marginV() int {
	if s.MarginV > 0 {
		return s.MarginV
	}
	return s.PlayResY / 12
}

func (s Style) fontName() string {
	if s.FontName != "" {
		return s.FontName
	}
	return "Inter"
}

// RenderASS builds a complete ASS subtitle track from display chunks.
// Timestamps are clip-local; the burner overlays the track onto the vertical
// clip in a single encode pass.
func RenderASS(chunks []types.SubtitleChunk, st Style) string {
	var b strings.Builder
	b.WriteString(assHeader(st))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range chunks {
		text := sanitizeASS(c.Text)
		text = strings.ReplaceAll(text, "\n", "\\N")
		if text == "" {
			continue
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Vertical,,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader(st Style) string {
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Vertical, %s, %d, &H00FFFFFF, &H00FFFFFF, &H00000000, &HA0000000, 1,0,0,0,100,100,0,0,3,4,0,2, 40,40,%d,1
`), st.PlayResX, st.PlayResY, st.fontName(), st.fontSize(), st.marginV())
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
