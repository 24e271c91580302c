package types

import "time"

// VideoInfo describes a probed media file. The source video is read-only for
// the lifetime of a task and safely shared across segment workers.
type VideoInfo struct {
	Path      string
	Container string
	Duration  time.Duration
	Width     int
	Height    int
	FPS       float64
}

// Segment is one externally selected time window of the source video.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Title string        `json:"title"`
}

func (s Segment) Duration() time.Duration { return s.End - s.Start }

// Word is one transcribed token with absolute source-timeline timestamps.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type Transcript struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Face is a single detection in source pixel coordinates.
type Face struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"conf"`
}

func (f Face) CenterX() float64 { return f.X + f.W/2 }
func (f Face) CenterY() float64 { return f.Y + f.H/2 }
func (f Face) Area() float64    { return f.W * f.H }

// FrameDetections holds the raw detector output for one sampled frame.
type FrameDetections struct {
	Index int     `json:"frame"`
	TS    float64 `json:"ts"`
	Faces []Face  `json:"faces"`
}

// FrameTarget is the resolved subject center for one frame. Sequences are
// monotonic in time with exactly one entry per frame; frames without a
// detection carry the previous target forward with Interpolated set.
type FrameTarget struct {
	Index        int
	TS           time.Duration
	X            float64
	Y            float64
	Confidence   float64
	Interpolated bool
}

// CropWindow is a 9:16 rectangle in source coordinates. Width and height are
// fixed per clip; only the position follows the tracked subject.
type CropWindow struct {
	X int
	Y int
	W int
	H int
}

// CropCommand repositions the crop window from At onward.
type CropCommand struct {
	At time.Duration
	X  int
	Y  int
}

// RenderSpec drives the single re-encode pass that produces the vertical clip.
type RenderSpec struct {
	CropW    int
	CropH    int
	OutW     int
	OutH     int
	Codec    string
	CRF      int
	Commands []CropCommand
}

// SubtitleChunk is a run of words displayed together. Chunks never overlap:
// each chunk ends at least a small gap before the next one starts.
type SubtitleChunk struct {
	Start    time.Duration
	End      time.Duration
	Text     string
	WordFrom int
	WordTo   int
}

// ClipArtifact is the final output of one segment.
type ClipArtifact struct {
	Path         string        `json:"file"`
	SegmentIndex int           `json:"segment_index"`
	Title        string        `json:"title"`
	StartSec     float64       `json:"start_sec"`
	EndSec       float64       `json:"end_sec"`
	Duration     time.Duration `json:"-"`
	HasSubtitles bool          `json:"has_subtitles"`
	Codec        string        `json:"codec"`
}

// SegmentFailure records why one segment did not reach done.
type SegmentFailure struct {
	SegmentIndex int    `json:"segment_index"`
	Stage        string `json:"stage"`
	Error        string `json:"error"`
}

// TaskResult separates successful clips from failed segments. A task with at
// least one clip and some failures is partially completed, not failed.
type TaskResult struct {
	TaskID   string           `json:"task_id"`
	Input    string           `json:"input"`
	Clips    []ClipArtifact   `json:"clips"`
	Failures []SegmentFailure `json:"failures,omitempty"`
}

func (r TaskResult) PartiallyCompleted() bool {
	return len(r.Clips) > 0 && len(r.Failures) > 0
}
