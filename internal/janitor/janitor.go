// Package janitor removes stale task workspaces left behind by crashed or
// killed runs. Normal completion cleans up after itself; the janitor is the
// backstop for everything else.
package janitor

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

type Janitor struct {
	workDir string
	ttl     time.Duration
	log     *slog.Logger
	cron    *cron.Cron
}

func New(workDir string, ttl time.Duration, log *slog.Logger) *Janitor {
	return &Janitor{workDir: workDir, ttl: ttl, log: log}
}

// Start schedules periodic sweeps. The returned stop function waits for an
// in-flight sweep to finish.
func (j *Janitor) Start(schedule string) (stop func(), err error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, j.Sweep); err != nil {
		return nil, err
	}
	c.Start()
	j.cron = c
	return func() { <-c.Stop().Done() }, nil
}

// Sweep removes every task directory whose last modification is older than
// the TTL. Directories of running tasks are younger than any sane TTL because
// workers keep writing into them.
func (j *Janitor) Sweep() {
	root := filepath.Join(j.workDir, "tasks")
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			j.log.Warn("janitor sweep failed", "dir", root, "err", err)
		}
		return
	}

	cutoff := time.Now().Add(-j.ttl)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			j.log.Warn("stale workspace removal failed", "dir", path, "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.log.Info("removed stale task workspaces", "count", removed)
	}
}
