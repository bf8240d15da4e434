package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ciresnave/commy-go/internal/bytesize"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerURL != "ws://localhost:9000/ws" {
		t.Errorf("expected default server_url, got %q", cfg.ServerURL)
	}
	if cfg.DefaultTimeout != 10*time.Second {
		t.Errorf("expected default_timeout 10s, got %v", cfg.DefaultTimeout)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("expected max_reconnect_attempts 5, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected logging level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.MaxVariableSize != 16*bytesize.MiB {
		t.Errorf("expected default max_variable_size 16MiB, got %s", cfg.MaxVariableSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server_url: "ws://commy.example.com/ws"
default_timeout: 5s
max_variable_size: "4Mi"
logging:
  level: "DEBUG"
  format: "json"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerURL != "ws://commy.example.com/ws" {
		t.Errorf("expected overridden server_url, got %q", cfg.ServerURL)
	}
	if cfg.DefaultTimeout != 5*time.Second {
		t.Errorf("expected overridden default_timeout, got %v", cfg.DefaultTimeout)
	}
	if cfg.MaxVariableSize != 4*bytesize.MiB {
		t.Errorf("expected overridden max_variable_size 4MiB, got %s", cfg.MaxVariableSize)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected overridden logging format, got %q", cfg.Logging.Format)
	}
	// max_reconnect_attempts was not set in the file, default still applies
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("expected default max_reconnect_attempts, got %d", cfg.MaxReconnectAttempts)
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server_url: "not-a-url"
logging:
  level: "LOUD"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for invalid server_url/log level")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("COMMY_SERVER_URL", "ws://env.example.com/ws")
	t.Setenv("COMMY_LOG_LEVEL", "WARN")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerURL != "ws://env.example.com/ws" {
		t.Errorf("expected env-overridden server_url, got %q", cfg.ServerURL)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("expected env-overridden log level, got %q", cfg.Logging.Level)
	}
}
