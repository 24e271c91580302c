// Package subtitles groups word-level transcription timestamps into display
// chunks and renders them as an ASS track for burn-in.
package subtitles

import (
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// Mode selects the chunking profile.
type Mode string

const (
	// ModeShortForm produces many 3-6 word chunks aligned to natural speech
	// breaks, for vertical clips.
	ModeShortForm Mode = "short-form"
	// ModeTraditional produces fewer, longer chunks near full sentences.
	ModeTraditional Mode = "traditional"
)

// ChunkConfig tunes the chunk walk. Zero values fall back to the mode's
// defaults via Normalize.
type ChunkConfig struct {
	Mode          Mode
	MaxLineChars  int
	MaxLines      int
	MaxWords      int
	MinDuration   time.Duration
	MaxDuration   time.Duration
	GapThreshold  time.Duration
	InterChunkGap time.Duration
}

// Normalize fills unset fields with the mode's defaults.
func (c ChunkConfig) Normalize() ChunkConfig {
	traditional := c.Mode == ModeTraditional
	if c.Mode == "" {
		c.Mode = ModeShortForm
	}
	def := func(v *int, short, long int) {
		if *v <= 0 {
			if traditional {
				*v = long
			} else {
				*v = short
			}
		}
	}
	defD := func(v *time.Duration, short, long time.Duration) {
		if *v <= 0 {
			if traditional {
				*v = long
			} else {
				*v = short
			}
		}
	}
	def(&c.MaxLineChars, 25, 42)
	def(&c.MaxLines, 2, 2)
	def(&c.MaxWords, 6, 14)
	defD(&c.MinDuration, 800*time.Millisecond, time.Second)
	defD(&c.MaxDuration, 1500*time.Millisecond, 6*time.Second)
	defD(&c.GapThreshold, 500*time.Millisecond, 800*time.Millisecond)
	defD(&c.InterChunkGap, 50*time.Millisecond, 50*time.Millisecond)
	return c
}

func (c ChunkConfig) maxChars() int { return c.MaxLineChars * c.MaxLines }

// Chunk filters words to a segment's window, re-bases them to segment-relative
// time and groups them into non-overlapping display chunks. An empty word list
// yields zero chunks, not an error.
func Chunk(words []types.Word, seg types.Segment, cfg ChunkConfig) []types.SubtitleChunk {
	cfg = cfg.Normalize()
	local := sliceWindow(words, seg)
	if len(local) == 0 {
		return nil
	}

	chunks := walk(local, cfg)
	chunks = enforceDurations(chunks, cfg)
	chunks = resolveOverlaps(chunks, cfg)
	clampLast(chunks, seg.Duration())
	return chunks
}

type localWord struct {
	start time.Duration
	end   time.Duration
	text  string
	index int
}

func sliceWindow(words []types.Word, seg types.Segment) []localWord {
	var out []localWord
	for i, w := range words {
		ws := secs(w.Start)
		we := secs(w.End)
		if we <= seg.Start || ws >= seg.End {
			continue
		}
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		if ws < seg.Start {
			ws = seg.Start
		}
		if we > seg.End {
			we = seg.End
		}
		out = append(out, localWord{start: ws - seg.Start, end: we - seg.Start, text: text, index: i})
	}
	return out
}

// walk accumulates words into chunks, closing the current chunk when any
// break rule fires: line budget exhausted, a natural pause, word/duration
// caps, or a sentence boundary once the minimum duration is satisfied.
func walk(words []localWord, cfg ChunkConfig) []types.SubtitleChunk {
	var out []types.SubtitleChunk
	var cur []localWord

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, buildChunk(cur, cfg))
		cur = nil
	}

	for _, w := range words {
		if len(cur) == 0 {
			cur = append(cur, w)
			continue
		}
		first := cur[0]
		last := cur[len(cur)-1]

		switch {
		case joinedLen(cur)+1+len([]rune(w.text)) > cfg.maxChars():
			flush()
		case w.start-last.end > cfg.GapThreshold:
			flush()
		case len(cur) >= cfg.MaxWords:
			flush()
		case w.end-first.start > cfg.MaxDuration:
			flush()
		case endsSentence(last.text) && last.end-first.start >= cfg.MinDuration:
			// Prefer breaking at sentence punctuation over mid-phrase.
			flush()
		}
		cur = append(cur, w)
	}
	flush()
	return out
}

func buildChunk(words []localWord, cfg ChunkConfig) types.SubtitleChunk {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.text
	}
	return types.SubtitleChunk{
		Start:    words[0].start,
		End:      words[len(words)-1].end,
		Text:     wrapLines(JoinWords(parts), cfg.MaxLineChars, cfg.MaxLines),
		WordFrom: words[0].index,
		WordTo:   words[len(words)-1].index,
	}
}

// JoinWords joins tokens with spaces, attaching punctuation-only tokens to
// the preceding word so "hello", "world", "!" renders as "hello world!".
func JoinWords(tokens []string) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && !punctOnly(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

func punctOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch r {
		case '.', ',', '!', '?', ':', ';':
		default:
			return false
		}
	}
	return true
}

// enforceDurations extends chunks below the minimum display duration and
// splits chunks whose word span exceeds the maximum. Extension never crosses
// the next chunk's start; resolveOverlaps applies the mandatory gap after.
func enforceDurations(chunks []types.SubtitleChunk, cfg ChunkConfig) []types.SubtitleChunk {
	for i := range chunks {
		if chunks[i].End-chunks[i].Start < cfg.MinDuration {
			chunks[i].End = chunks[i].Start + cfg.MinDuration
		}
		if chunks[i].End-chunks[i].Start > cfg.MaxDuration {
			chunks[i].End = chunks[i].Start + cfg.MaxDuration
		}
	}
	return chunks
}

// resolveOverlaps guarantees chunk[i].End + gap <= chunk[i+1].Start by
// shrinking the earlier chunk's end, never moving the later chunk's start.
func resolveOverlaps(chunks []types.SubtitleChunk, cfg ChunkConfig) []types.SubtitleChunk {
	for i := 0; i+1 < len(chunks); i++ {
		limit := chunks[i+1].Start - cfg.InterChunkGap
		if chunks[i].End > limit {
			if limit > chunks[i].Start {
				chunks[i].End = limit
			} else {
				// Next chunk starts immediately; keep a sliver of display time.
				chunks[i].End = chunks[i+1].Start
			}
		}
	}
	return chunks
}

// clampLast keeps the final chunk inside the segment. It may end up shorter
// than the minimum duration; that is the one allowed exception.
func clampLast(chunks []types.SubtitleChunk, segDur time.Duration) {
	if len(chunks) == 0 {
		return
	}
	last := &chunks[len(chunks)-1]
	if last.End > segDur && segDur > last.Start {
		last.End = segDur
	}
}

// wrapLines breaks text into at most maxLines lines of maxChars characters.
// A single word longer than the cap is never truncated; it stays on its own
// line even though the line runs long.
func wrapLines(text string, maxChars, maxLines int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		if len([]rune(cur))+1+len([]rune(w)) <= maxChars {
			cur += " " + w
			continue
		}
		if len(lines) >= maxLines-1 {
			// Out of lines; keep appending rather than dropping words.
			cur += " " + w
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	lines = append(lines, cur)
	return strings.Join(lines, "\n")
}

func joinedLen(words []localWord) int {
	n := 0
	for i, w := range words {
		if i > 0 {
			n++
		}
		n += len([]rune(w.text))
	}
	return n
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") ||
		strings.HasSuffix(word, "!") ||
		strings.HasSuffix(word, "?")
}

func secs(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }
