// internal/config/config.go
//
// This package handles configuration and the .collate directory structure.
// Every project that runs the collation client gets a .collate/ folder in its
// root holding config.yaml, logs and exported results.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/collate/internal/logging"
)

const (
	// CollateDir is the name of the directory we create in each project
	CollateDir = ".collate"

	// DefaultBaseURL is where a locally started engine listens.
	DefaultBaseURL = "http://localhost:7369/collate"

	// DefaultLogLevel is used when neither config nor environment set one.
	DefaultLogLevel = "info"
)

const defaultProjectConfigYAML = `# collate project configuration
version: 1

# Collation engine. Requests are posted to base_url + "/".
engine:
  base_url: http://localhost:7369/collate
  # Leave empty to wait for the engine indefinitely.
  timeout: ""

# Example witness sets. Relative paths resolve against the project root.
# When the file is missing the built-in examples are offered.
examples:
  path: .collate/examples.yaml

logging:
  level: info

# Prometheus endpoint for submission and request metrics.
metrics:
  enabled: false
  host: 127.0.0.1
  port: 9469
`

// EngineConfig locates the collation engine.
type EngineConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout,omitempty"`
}

// ExamplesConfig points at the preset witness sets.
type ExamplesConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig captures the optional metrics endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectConfig models .collate/config.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Engine   EngineConfig   `yaml:"engine"`
	Examples ExamplesConfig `yaml:"examples"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory the client was started from
	ProjectDir string

	// CollateProjectDir is ProjectDir/.collate
	CollateProjectDir string

	Project ProjectConfig
}

// InitCollateDir creates the .collate directory structure in the given
// project directory and writes a default config.yaml when none exists.
//
// Structure created:
// .collate/
// ├── config.yaml
// ├── logs/      <- collate.log and the session journal
// └── exports/   <- one timestamped folder per export
func InitCollateDir(projectDir string) error {
	collateDir := filepath.Join(projectDir, CollateDir)

	dirs := []string{
		filepath.Join(collateDir, "logs"),
		filepath.Join(collateDir, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(collateDir, "config.yaml"))
}

// NewConfig loads .collate/config.yaml from projectDir, falling back to
// defaults when the file is missing, then applies environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		CollateProjectDir: filepath.Join(projectDir, CollateDir),
		Project:           defaultProjectConfig(),
	}
	cfg.Project.normalize(projectDir)

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CollateProjectDir, "logs")
}

// ExportsDir returns the root under which exports are written
func (c *Config) ExportsDir() string {
	return filepath.Join(c.CollateProjectDir, "exports")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CollateProjectDir, "config.yaml")
}

// BaseURL returns the engine base URL.
func (c *Config) BaseURL() string {
	return c.Project.Engine.BaseURL
}

// SetBaseURL overrides the engine base URL for this run only.
func (c *Config) SetBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if err := validateBaseURL(raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.Engine.BaseURL = raw
	return nil
}

// Timeout returns the per-request timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	d, _ := parseTimeout(c.Project.Engine.Timeout)
	return d
}

// ExamplesPath returns the absolute path of the presets file.
func (c *Config) ExamplesPath() string {
	return c.Project.Examples.Path
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() slog.Level {
	return logging.ParseLevel(c.Project.Logging.Level)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if value := strings.TrimSpace(os.Getenv("COLLATE_BASE_URL")); value != "" {
		if err := validateBaseURL(value); err != nil {
			return fmt.Errorf("config: COLLATE_BASE_URL: %w", err)
		}
		c.Project.Engine.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("COLLATE_TIMEOUT")); value != "" {
		if _, err := parseTimeout(value); err != nil {
			return fmt.Errorf("config: COLLATE_TIMEOUT: %w", err)
		}
		c.Project.Engine.Timeout = value
	}
	if value := strings.TrimSpace(os.Getenv("COLLATE_LOG_LEVEL")); value != "" {
		if err := validateLevel(value); err != nil {
			return fmt.Errorf("config: COLLATE_LOG_LEVEL: %w", err)
		}
		c.Project.Logging.Level = strings.ToLower(value)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Engine:   EngineConfig{BaseURL: DefaultBaseURL},
		Examples: ExamplesConfig{Path: filepath.Join(CollateDir, "examples.yaml")},
		Logging:  LoggingConfig{Level: DefaultLogLevel},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Engine.BaseURL) == "" {
		pc.Engine.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(pc.Examples.Path) == "" {
		pc.Examples.Path = filepath.Join(CollateDir, "examples.yaml")
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = DefaultLogLevel
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Engine.BaseURL = strings.TrimSpace(pc.Engine.BaseURL)
	pc.Engine.Timeout = strings.TrimSpace(pc.Engine.Timeout)
	pc.Examples.Path = resolvePath(base, pc.Examples.Path)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Metrics.Host = strings.TrimSpace(pc.Metrics.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateBaseURL(pc.Engine.BaseURL); err != nil {
		return fmt.Errorf("engine.base_url: %w", err)
	}
	if _, err := parseTimeout(pc.Engine.Timeout); err != nil {
		return fmt.Errorf("engine.timeout: %w", err)
	}
	if err := validateLevel(pc.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if pc.Metrics.Port < 0 || pc.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535")
	}
	return nil
}

func validateLevel(raw string) error {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", raw)
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base url must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("base url needs a host")
	}
	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("timeout must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative")
	}
	return d, nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
