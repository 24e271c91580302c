package gemini

import (
	"testing"
	"time"
)

func TestParseSegments(t *testing.T) {
	reply := "Here are the best moments:\n```json\n" +
		`[{"start": 42.5, "end": 71.0, "title": "The hot take"},
		  {"start": 10.0, "end": 35.0, "title": "Cold open"}]` +
		"\n```"
	segs, err := ParseSegments(reply, 2*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Title != "Cold open" {
		t.Fatalf("segments not sorted by start: first is %q", segs[0].Title)
	}
	if segs[1].Start != 42500*time.Millisecond {
		t.Fatalf("got start %s", segs[1].Start)
	}
}

func TestParseSegments_DropsInvalidWindows(t *testing.T) {
	reply := `[
		{"start": -5, "end": 10, "title": "negative"},
		{"start": 30, "end": 20, "title": "inverted"},
		{"start": 50, "end": 500, "title": "past the end"},
		{"start": 5, "end": 25, "title": ""}
	]`
	segs, err := ParseSegments(reply, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 survivor", len(segs))
	}
	if segs[0].Title == "" {
		t.Fatal("blank title must get a generated fallback")
	}
}

func TestParseSegments_NoArray(t *testing.T) {
	if _, err := ParseSegments("I could not find any segments.", time.Minute); err == nil {
		t.Fatal("expected error when no JSON array is present")
	}
}
