package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(workersEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Output.CreateVertical || cfg.Output.CRF != 18 {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Tracking.SmoothingStrength != "high" || cfg.Tracking.SampleStride != 200*time.Millisecond {
		t.Fatalf("unexpected tracking defaults: %+v", cfg.Tracking)
	}
	if cfg.Subtitles.MaxDuration != 1500*time.Millisecond {
		t.Fatalf("unexpected subtitle defaults: %+v", cfg.Subtitles)
	}
	if cfg.Task.Workers != 2 {
		t.Fatalf("unexpected worker default: %d", cfg.Task.Workers)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipforge.yaml")
	yaml := `
logLevel: debug
output:
  createVertical: false
  crf: 23
tracking:
  smoothingStrength: very_high
  presets:
    very_high:
      maxJumpPx: 10
task:
  workers: 6
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(workersEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Output.CRF != 23 || cfg.Task.Workers != 6 {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.Output.CreateVertical {
		t.Fatal("createVertical=false not applied")
	}
	if cfg.Tracking.Presets["very_high"].MaxJumpPx != 10 {
		t.Fatalf("preset override lost: %+v", cfg.Tracking.Presets)
	}
	// Untouched sections keep their defaults.
	if cfg.Subtitles.MaxWords != 6 {
		t.Fatalf("unrelated default clobbered: %+v", cfg.Subtitles)
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipforge.yaml")
	if err := os.WriteFile(path, []byte("task:\n  workers: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(workersEnv, "8")
	t.Setenv(groqAPIKeyEnv, "gsk_test")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Task.Workers != 8 {
		t.Fatalf("env override lost: workers=%d", cfg.Task.Workers)
	}
	if cfg.Providers.Groq.APIKey != "gsk_test" {
		t.Fatal("groq key not picked up from env")
	}
}

func TestLoad_BadWorkerEnvIgnored(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(workersEnv, "-4")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Task.Workers != 2 {
		t.Fatalf("invalid env value applied: workers=%d", cfg.Task.Workers)
	}
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("an explicitly named config file must exist")
	}
}
