// Package status keeps one ProcessingTask's progress record current for the
// external status collaborator. Segment workers report concurrently; the
// tracker serializes every mutation under a mutex so no update is lost.
package status

import (
	"sync"

	"github.com/clipforge/clipforge/internal/types"
)

// SegmentState is the per-segment state machine. failed is reachable from
// any non-terminal state.
type SegmentState string

const (
	Pending    SegmentState = "pending"
	Extracting SegmentState = "extracting"
	Reframing  SegmentState = "reframing"
	Subtitling SegmentState = "subtitling"
	Done       SegmentState = "done"
	Failed     SegmentState = "failed"
)

// stageProgress maps a state to how much of a segment's work is behind it.
var stageProgress = map[SegmentState]float64{
	Pending:    0,
	Extracting: 0.10,
	Reframing:  0.30,
	Subtitling: 0.85,
	Done:       1,
	Failed:     1,
}

// SegmentStatus is one row of the task record.
type SegmentStatus struct {
	Index int          `json:"index"`
	Title string       `json:"title"`
	State SegmentState `json:"state"`
	Error string       `json:"error,omitempty"`
}

// TaskStatus is the externally visible snapshot.
type TaskStatus struct {
	TaskID   string          `json:"task_id"`
	Segments []SegmentStatus `json:"segments"`
	Progress float64         `json:"progress"`
	Stage    string          `json:"stage"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Sink receives a fresh snapshot after every transition (push model). Pull
// consumers call Tracker.Snapshot instead.
type Sink interface {
	Update(TaskStatus)
}

type Tracker struct {
	mu   sync.Mutex
	st   TaskStatus
	sink Sink
}

func NewTracker(taskID string, segments []types.Segment, sink Sink) *Tracker {
	rows := make([]SegmentStatus, len(segments))
	for i, s := range segments {
		rows[i] = SegmentStatus{Index: i, Title: s.Title, State: Pending}
	}
	return &Tracker{
		st:   TaskStatus{TaskID: taskID, Segments: rows, Stage: "pending"},
		sink: sink,
	}
}

// SetStage updates the task-level stage label (e.g. "downloading",
// "transcribing") before segment work begins.
func (t *Tracker) SetStage(stage, message string) {
	t.mu.Lock()
	t.st.Stage = stage
	t.st.Message = message
	t.publishLocked()
	t.mu.Unlock()
}

func (t *Tracker) SetSegmentState(idx int, state SegmentState) {
	t.mu.Lock()
	if idx >= 0 && idx < len(t.st.Segments) {
		t.st.Segments[idx].State = state
		t.st.Stage = string(state)
		t.recomputeLocked()
	}
	t.publishLocked()
	t.mu.Unlock()
}

func (t *Tracker) SetSegmentError(idx int, err error) {
	t.mu.Lock()
	if idx >= 0 && idx < len(t.st.Segments) && err != nil {
		t.st.Segments[idx].State = Failed
		t.st.Segments[idx].Error = err.Error()
		t.recomputeLocked()
	}
	t.publishLocked()
	t.mu.Unlock()
}

func (t *Tracker) SetTaskError(err error) {
	t.mu.Lock()
	if err != nil {
		t.st.Error = err.Error()
	}
	t.publishLocked()
	t.mu.Unlock()
}

// Snapshot returns a deep copy safe for concurrent readers.
func (t *Tracker) Snapshot() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

func (t *Tracker) recomputeLocked() {
	if len(t.st.Segments) == 0 {
		t.st.Progress = 0
		return
	}
	var sum float64
	for _, s := range t.st.Segments {
		sum += stageProgress[s.State]
	}
	t.st.Progress = sum / float64(len(t.st.Segments)) * 100
}

func (t *Tracker) publishLocked() {
	if t.sink != nil {
		t.sink.Update(t.copyLocked())
	}
}

func (t *Tracker) copyLocked() TaskStatus {
	cp := t.st
	cp.Segments = append([]SegmentStatus(nil), t.st.Segments...)
	return cp
}
