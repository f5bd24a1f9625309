// Package config resolves agentcore's runtime configuration from
// environment variables, an optional dotenv file, and an optional
// YAML overlay, following the layering hector's pkg/config uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ApprovalMode controls when the tool executor prompts for user approval.
type ApprovalMode string

const (
	ApprovalAlways     ApprovalMode = "always"
	ApprovalNever      ApprovalMode = "never"
	ApprovalUnsafeOnly ApprovalMode = "unsafe-only"
)

// Config centralizes resolved runtime configuration.
type Config struct {
	APIURL               string       `yaml:"api_url"`
	APIKey               string       `yaml:"-"` // never serialized
	Model                string       `yaml:"model"`
	MaxIterations         int          `yaml:"max_iterations"`
	ApprovalMode          ApprovalMode `yaml:"approval_mode"`
	LogLevel              string       `yaml:"log_level"`
	OutputTruncateChars   int          `yaml:"output_truncate_chars"`
	RequestTimeoutSeconds int          `yaml:"request_timeout_seconds"`
	HookTimeoutSeconds    int          `yaml:"hook_timeout_seconds"`
	BridgeTimeoutSeconds  int          `yaml:"bridge_timeout_seconds"`
	SessionHighWaterMark  int          `yaml:"session_high_water_mark"`
	MinSimilarity         float64      `yaml:"min_similarity"`
	HomeDir               string       `yaml:"-"`
}

const envPrefix = "AGENTCORE_"

// Defaults returns the baseline configuration before env/file overlays.
func Defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		APIURL:                "http://localhost:8080/v1",
		Model:                 "default",
		MaxIterations:         15,
		ApprovalMode:          ApprovalUnsafeOnly,
		LogLevel:              "warn",
		OutputTruncateChars:   50000,
		RequestTimeoutSeconds: 120,
		HookTimeoutSeconds:    30,
		BridgeTimeoutSeconds:  30,
		SessionHighWaterMark:  100,
		MinSimilarity:         0.7,
		HomeDir:               filepath.Join(home, ".agentcore"),
	}
}

// Load resolves configuration: defaults, then the dotenv file under the
// per-user config directory, then environment variables, then an optional
// YAML overlay at <home>/config.yaml. Later layers win.
func Load() (*Config, error) {
	cfg := Defaults()

	_ = godotenv.Load(filepath.Join(cfg.HomeDir, ".env"))

	cfg.applyEnv()

	yamlPath := filepath.Join(cfg.HomeDir, "config.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		var overlay Config
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
		mergeOverlay(cfg, &overlay)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envPrefix + "API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(envPrefix + "API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(envPrefix + "MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv(envPrefix + "MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v := os.Getenv(envPrefix + "APPROVAL_MODE"); v != "" {
		c.ApprovalMode = ApprovalMode(strings.ToLower(v))
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_TRUNCATE_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OutputTruncateChars = n
		}
	}
}

func mergeOverlay(base, overlay *Config) {
	if overlay.APIURL != "" {
		base.APIURL = overlay.APIURL
	}
	if overlay.Model != "" {
		base.Model = overlay.Model
	}
	if overlay.MaxIterations != 0 {
		base.MaxIterations = overlay.MaxIterations
	}
	if overlay.ApprovalMode != "" {
		base.ApprovalMode = overlay.ApprovalMode
	}
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.OutputTruncateChars != 0 {
		base.OutputTruncateChars = overlay.OutputTruncateChars
	}
	if overlay.RequestTimeoutSeconds != 0 {
		base.RequestTimeoutSeconds = overlay.RequestTimeoutSeconds
	}
	if overlay.MinSimilarity != 0 {
		base.MinSimilarity = overlay.MinSimilarity
	}
}
