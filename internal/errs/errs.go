// Package errs defines the pipeline error taxonomy. Stage errors wrap one of
// the sentinel kinds so callers can classify with errors.Is regardless of how
// many layers of context were added on the way up.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrTrackingUnavailable = errors.New("tracking unavailable")
	ErrReframeFailed       = errors.New("reframe failed")
	ErrChunkingDegenerate  = errors.New("degenerate transcript")
	ErrBurnFailed          = errors.New("subtitle burn failed")
	ErrTimeout             = errors.New("stage timed out")
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// SegmentError ties a stage failure to the segment it happened in.
type SegmentError struct {
	SegmentIndex int
	Stage        string
	Err          error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %s: %v", e.SegmentIndex, e.Stage, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Segment wraps err with segment and stage context, tagging it with kind when
// it is not already classified.
func Segment(idx int, stage string, kind, err error) error {
	if err == nil {
		return nil
	}
	if !classified(err) {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &SegmentError{SegmentIndex: idx, Stage: stage, Err: err}
}

// Fatal reports whether err makes the whole task unrecoverable. Retrying a
// missing model asset or a bad configuration fails identically every time.
func Fatal(err error) bool {
	return errors.Is(err, ErrTrackingUnavailable) || errors.Is(err, ErrInvalidConfig)
}

func classified(err error) bool {
	for _, kind := range []error{
		ErrExtractionFailed,
		ErrTrackingUnavailable,
		ErrReframeFailed,
		ErrChunkingDegenerate,
		ErrBurnFailed,
		ErrTimeout,
		ErrResourceExhausted,
		ErrInvalidConfig,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
