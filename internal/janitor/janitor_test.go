package janitor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep_RemovesOnlyStaleWorkspaces(t *testing.T) {
	work := t.TempDir()
	stale := filepath.Join(work, "tasks", "stale-task")
	fresh := filepath.Join(work, "tasks", "fresh-task")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	New(work, 24*time.Hour, discard()).Sweep()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale workspace survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh workspace was removed")
	}
}

func TestSweep_MissingRootIsQuiet(t *testing.T) {
	New(filepath.Join(t.TempDir(), "nowhere"), time.Hour, discard()).Sweep()
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	j := New(t.TempDir(), time.Hour, discard())
	if _, err := j.Start("not a cron spec"); err == nil {
		t.Fatal("expected schedule parse error")
	}
	stop, err := j.Start("@hourly")
	if err != nil {
		t.Fatal(err)
	}
	stop()
}
