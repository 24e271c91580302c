package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "CLIPFORGE_CONFIG"
	groqAPIKeyEnv   = "GROQ_API_KEY"
	groqBaseURLEnv  = "GROQ_BASE_URL"
	geminiAPIKeyEnv = "GEMINI_API_KEY"
	geminiModelEnv  = "GEMINI_MODEL"
	workersEnv      = "CLIPFORGE_WORKERS"
	logLevelEnv     = "CLIPFORGE_LOG_LEVEL"
)

// Config holds every knob the pipeline needs. It is loaded once and threaded
// through calls explicitly; no component reads ambient state.
type Config struct {
	LogLevel string `yaml:"logLevel"`

	Output    OutputConfig    `yaml:"output"`
	Tools     ToolsConfig     `yaml:"tools"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Task      TaskConfig      `yaml:"task"`
	Providers ProviderConfig  `yaml:"providers"`
	Janitor   JanitorConfig   `yaml:"janitor"`
}

// OutputConfig controls the final encode.
type OutputConfig struct {
	Quality        string `yaml:"quality"`
	CreateVertical bool   `yaml:"createVertical"`
	TargetHeight   int    `yaml:"targetHeight"`
	ExportCodec    string `yaml:"exportCodec"`
	CRF            int    `yaml:"crf"`
}

// ToolsConfig points at the external binaries the adapters spawn.
type ToolsConfig struct {
	FFmpeg        string `yaml:"ffmpeg"`
	FFprobe       string `yaml:"ffprobe"`
	DetectorBin   string `yaml:"detectorBin"`
	DetectorModel string `yaml:"detectorModel"`
	YtDlp         string `yaml:"ytDlp"`
}

// TrackingConfig tunes the speaker tracker.
type TrackingConfig struct {
	SmoothingStrength string                  `yaml:"smoothingStrength"`
	SampleStride      time.Duration           `yaml:"sampleStride"`
	SceneReset        bool                    `yaml:"sceneReset"`
	SceneThreshold    float64                 `yaml:"sceneThreshold"`
	Presets           map[string]PresetConfig `yaml:"presets"`
}

// PresetConfig overrides one smoothing preset. The built-in constants are
// empirical; deployments retune them here rather than patching code.
type PresetConfig struct {
	Factor    float64 `yaml:"factor"`
	MaxJumpPx float64 `yaml:"maxJumpPx"`
	Window    int     `yaml:"window"`
}

// SubtitlesConfig tunes chunking and burn-in.
type SubtitlesConfig struct {
	Burn          bool          `yaml:"burn"`
	Style         string        `yaml:"style"`
	FontSize      int           `yaml:"fontSize"`
	MaxLineChars  int           `yaml:"maxLineChars"`
	MaxLines      int           `yaml:"maxLines"`
	MaxWords      int           `yaml:"maxWords"`
	MinDuration   time.Duration `yaml:"minDuration"`
	MaxDuration   time.Duration `yaml:"maxDuration"`
	GapThreshold  time.Duration `yaml:"gapThreshold"`
	InterChunkGap time.Duration `yaml:"interChunkGap"`
}

// TaskConfig controls orchestration.
type TaskConfig struct {
	Workers         int           `yaml:"workers"`
	WorkDir         string        `yaml:"workDir"`
	ExtractTimeout  time.Duration `yaml:"extractTimeout"`
	EncodeMultiple  float64       `yaml:"encodeMultiple"`
	EncodeMinBudget time.Duration `yaml:"encodeMinBudget"`
	ReframeRetries  int           `yaml:"reframeRetries"`
	DiscardOnCancel bool          `yaml:"discardOnCancel"`
}

// ProviderConfig wires the external AI collaborators.
type ProviderConfig struct {
	Groq   GroqConfig   `yaml:"groq"`
	Gemini GeminiConfig `yaml:"gemini"`
}

type GroqConfig struct {
	APIKey       string   `yaml:"apiKey"`
	BaseURL      string   `yaml:"baseUrl"`
	Model        string   `yaml:"model"`
	AllowedHosts []string `yaml:"allowedHosts"`
}

type GeminiConfig struct {
	APIKey      string `yaml:"apiKey"`
	Model       string `yaml:"model"`
	MaxSegments int    `yaml:"maxSegments"`
}

// JanitorConfig controls background cleanup of stale task workspaces.
type JanitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	TTL      time.Duration `yaml:"ttl"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		Output: OutputConfig{
			Quality:        "1080p",
			CreateVertical: true,
			TargetHeight:   1080,
			ExportCodec:    "h264",
			CRF:            18,
		},
		Tools: ToolsConfig{
			FFmpeg:        "ffmpeg",
			FFprobe:       "ffprobe",
			DetectorBin:   "facedet",
			DetectorModel: "models/res10_300x300_ssd.onnx",
			YtDlp:         "yt-dlp",
		},
		Tracking: TrackingConfig{
			SmoothingStrength: "high",
			SampleStride:      200 * time.Millisecond,
			SceneReset:        true,
			SceneThreshold:    0.4,
		},
		Subtitles: SubtitlesConfig{
			Burn:          true,
			Style:         "short-form",
			FontSize:      0, // 0 means derive from output height
			MaxLineChars:  25,
			MaxLines:      2,
			MaxWords:      6,
			MinDuration:   800 * time.Millisecond,
			MaxDuration:   1500 * time.Millisecond,
			GapThreshold:  500 * time.Millisecond,
			InterChunkGap: 50 * time.Millisecond,
		},
		Task: TaskConfig{
			Workers:         2,
			WorkDir:         ".work",
			ExtractTimeout:  90 * time.Second,
			EncodeMultiple:  20,
			EncodeMinBudget: 2 * time.Minute,
			ReframeRetries:  2,
			DiscardOnCancel: false,
		},
		Providers: ProviderConfig{
			Groq: GroqConfig{
				BaseURL: "https://api.groq.com",
				Model:   "whisper-large-v3",
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.0-flash",
				MaxSegments: 5,
			},
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Schedule: "@hourly",
			TTL:      24 * time.Hour,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(groqAPIKeyEnv); v != "" {
		cfg.Providers.Groq.APIKey = v
	}
	if v := os.Getenv(groqBaseURLEnv); v != "" {
		cfg.Providers.Groq.BaseURL = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		cfg.Providers.Gemini.Model = v
	}
	if v := os.Getenv(workersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Task.Workers = n
		}
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		cfg.LogLevel = v
	}
}
