// Package config loads environment-driven configuration for the installer,
// supervisor, detection engine, and switcher.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultContextLadder is the fixed sequence of context sizes (in tokens)
// the detection engine searches, ascending order, each a multiple of 1024.
var defaultContextLadder = []int{4096, 8192, 16384, 24576, 32768, 49152, 65536, 98304, 131072, 196608, 262144}

// DefaultReadinessSubstring is the exact log-line fragment the supervisor
// scans for before a server is considered ready. Configurable per Open
// Question (b): server log formats may drift across llama.cpp versions.
const DefaultReadinessSubstring = "server is listening on http://%s:%d - starting the main loop"

// Config holds all environment-driven settings for this module.
type Config struct {
	// InstallRoot is the directory tree the Installation Probe scans for
	// llama-server/llama-cli.
	InstallRoot string

	// LogPath is the destination file for structured logs; rotation is
	// handled by the logging package.
	LogPath string

	// DevMode enables debug-level, console-friendly logging.
	DevMode bool

	// StartTimeout bounds how long the supervisor waits for readiness.
	StartTimeout time.Duration

	// CompletionTimeout bounds a single /completion probe during benchmarking.
	CompletionTimeout time.Duration

	// StopGrace bounds how long the supervisor waits after a graceful
	// termination signal before escalating to a forced kill.
	StopGrace time.Duration

	// ReadinessSubstring overrides DefaultReadinessSubstring; see Open
	// Question (b) in SPEC_FULL.md.
	ReadinessSubstring string

	// DefaultContextSize is used by selectSpec/effective(contextSize) when
	// a config or request omits it.
	DefaultContextSize int

	// ContextLadder is the sequence of context sizes (in tokens) the
	// detection engine searches, ascending order. Defaults to
	// defaultContextLadder; overridable per-Engine via --config so two
	// Engines in the same process can search different ladders.
	ContextLadder []int
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseDurationSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1"
}

// Load reads an optional .env file (ignored if absent) then environment
// variables, applying documented defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		InstallRoot:        getEnvOrDefault("LLAMAHOST_INSTALL_ROOT", "./llama"),
		LogPath:            getEnvOrDefault("LLAMAHOST_LOG_PATH", "llamahost.log"),
		DevMode:            parseBoolEnv("LLAMAHOST_DEV_MODE", false),
		StartTimeout:       parseDurationSecondsEnv("LLAMAHOST_START_TIMEOUT_SECONDS", 60*time.Second),
		CompletionTimeout:  parseDurationSecondsEnv("LLAMAHOST_COMPLETION_TIMEOUT_SECONDS", 120*time.Second),
		StopGrace:          parseDurationSecondsEnv("LLAMAHOST_STOP_GRACE_SECONDS", 5*time.Second),
		ReadinessSubstring: getEnvOrDefault("LLAMAHOST_READINESS_SUBSTRING", DefaultReadinessSubstring),
		DefaultContextSize: parseIntEnv("LLAMAHOST_DEFAULT_CONTEXT_SIZE", 4096),
		ContextLadder:      append([]int(nil), defaultContextLadder...),
	}, nil
}

// yamlOverrides is the on-disk shape for --config config.yaml. Every field
// is optional; an absent field leaves the corresponding Config value
// untouched.
type yamlOverrides struct {
	InstallRoot           string `yaml:"install_root"`
	LogPath               string `yaml:"log_path"`
	StartTimeoutSeconds   int    `yaml:"start_timeout_seconds"`
	CompletionTimeoutSecs int    `yaml:"completion_timeout_seconds"`
	StopGraceSeconds      int    `yaml:"stop_grace_seconds"`
	ReadinessSubstring    string `yaml:"readiness_substring"`
	DefaultContextSize    int    `yaml:"default_context_size"`
	ContextLadder         []int  `yaml:"context_ladder"`
}

// LoadYAMLOverrides reads path and applies any set fields on top of cfg,
// letting an operator tune the ladder and timeouts without environment
// variables. A missing file is an error; callers only pass a path the
// user explicitly named with --config.
func LoadYAMLOverrides(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config override %s: %w", path, err)
	}

	var o yamlOverrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parsing config override %s: %w", path, err)
	}

	if o.InstallRoot != "" {
		cfg.InstallRoot = o.InstallRoot
	}
	if o.LogPath != "" {
		cfg.LogPath = o.LogPath
	}
	if o.StartTimeoutSeconds > 0 {
		cfg.StartTimeout = time.Duration(o.StartTimeoutSeconds) * time.Second
	}
	if o.CompletionTimeoutSecs > 0 {
		cfg.CompletionTimeout = time.Duration(o.CompletionTimeoutSecs) * time.Second
	}
	if o.StopGraceSeconds > 0 {
		cfg.StopGrace = time.Duration(o.StopGraceSeconds) * time.Second
	}
	if o.ReadinessSubstring != "" {
		cfg.ReadinessSubstring = o.ReadinessSubstring
	}
	if o.DefaultContextSize > 0 {
		cfg.DefaultContextSize = o.DefaultContextSize
	}
	if len(o.ContextLadder) > 0 {
		cfg.ContextLadder = o.ContextLadder
	}
	return nil
}
