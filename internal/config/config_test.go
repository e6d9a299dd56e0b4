package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProjectConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	collateDir := filepath.Join(projectDir, CollateDir)
	if err := os.MkdirAll(collateDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(collateDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("expected default base url %q, got %q", DefaultBaseURL, c.BaseURL())
	}
	if c.Timeout() != 0 {
		t.Fatalf("expected no timeout by default, got %s", c.Timeout())
	}
	want := filepath.Join(projectDir, CollateDir, "examples.yaml")
	if c.ExamplesPath() != want {
		t.Fatalf("expected examples path %q, got %q", want, c.ExamplesPath())
	}
	if c.LogLevel() != slog.LevelInfo {
		t.Fatalf("expected info level, got %s", c.LogLevel())
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
version: 1
engine:
  base_url: https://collatex.example.org/collate/
  timeout: 30s
examples:
  path: presets/witnesses.yaml
logging:
  level: DEBUG
metrics:
  enabled: true
  port: 9100
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.BaseURL() != "https://collatex.example.org/collate/" {
		t.Fatalf("wrong base url: %s", c.BaseURL())
	}
	if c.Timeout() != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", c.Timeout())
	}
	if !strings.HasPrefix(c.ExamplesPath(), projectDir) {
		t.Fatalf("expected examples path to be resolved, got %s", c.ExamplesPath())
	}
	if c.LogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %s", c.LogLevel())
	}
	if c.Project.Metrics.Enabled == nil || !*c.Project.Metrics.Enabled {
		t.Fatalf("expected metrics enabled")
	}
	if c.Project.Metrics.Port != 9100 {
		t.Fatalf("expected metrics port 9100, got %d", c.Project.Metrics.Port)
	}
}

func TestTimeoutAcceptsBareSeconds(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
engine:
  base_url: http://localhost:7369/collate
  timeout: "12"
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Timeout() != 12*time.Second {
		t.Fatalf("expected 12s, got %s", c.Timeout())
	}
}

func TestNewConfigValidation(t *testing.T) {
	cases := map[string]string{
		"scheme": `
engine:
  base_url: ftp://example.org/collate`,
		"timeout": `
engine:
  base_url: http://localhost/collate
  timeout: soon`,
		"level": `
logging:
  level: chatty`,
		"port": `
metrics:
  port: 70000`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeProjectConfig(t, projectDir, body)
			if _, err := NewConfig(projectDir); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("COLLATE_BASE_URL", "http://engine.internal:8080/collate")
	t.Setenv("COLLATE_TIMEOUT", "5s")
	t.Setenv("COLLATE_LOG_LEVEL", "warn")
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
engine:
  base_url: http://localhost:7369/collate
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.BaseURL() != "http://engine.internal:8080/collate" {
		t.Fatalf("expected env base url, got %s", c.BaseURL())
	}
	if c.Timeout() != 5*time.Second {
		t.Fatalf("expected env timeout, got %s", c.Timeout())
	}
	if c.LogLevel() != slog.LevelWarn {
		t.Fatalf("expected warn level, got %s", c.LogLevel())
	}
}

func TestEnvironmentOverrideIsValidated(t *testing.T) {
	t.Setenv("COLLATE_BASE_URL", "not a url")
	if _, err := NewConfig(t.TempDir()); err == nil {
		t.Fatalf("expected error for invalid COLLATE_BASE_URL")
	}
}

func TestSetBaseURL(t *testing.T) {
	c, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetBaseURL("localhost:7369"); err == nil {
		t.Fatalf("expected error for schemeless url")
	}
	if err := c.SetBaseURL(" https://example.org/collate "); err != nil {
		t.Fatalf("SetBaseURL: %v", err)
	}
	if c.BaseURL() != "https://example.org/collate" {
		t.Fatalf("unexpected base url %q", c.BaseURL())
	}
}

func TestInitCollateDirWritesLoadableConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitCollateDir(projectDir); err != nil {
		t.Fatalf("InitCollateDir: %v", err)
	}
	for _, sub := range []string{"logs", "exports"} {
		if info, err := os.Stat(filepath.Join(projectDir, CollateDir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", sub, err)
		}
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config should load: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("unexpected base url %q", c.BaseURL())
	}
	if c.Project.Metrics.Port != 9469 {
		t.Fatalf("expected metrics port from default file, got %d", c.Project.Metrics.Port)
	}
}
