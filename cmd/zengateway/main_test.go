package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zencontrol/zengateway/internal/infrastructure/logging"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("ZENGW_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path
// is empty, which validation rejects before any service starts.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
gateway:
  id: test-gateway

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text

api:
  host: "127.0.0.1"
  port: 8090

security:
  jwt:
    secret: "test-secret-at-least-32-characters-long"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("ZENGW_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_MissingJWTSecret verifies run fails when no JWT secret is
// configured.
func TestRun_MissingJWTSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
gateway:
  id: test-gateway

database:
  path: "` + dbPath + `"

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("ZENGW_CONFIG", configPath)
	t.Setenv("ZENGW_JWT_SECRET", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
}

// TestLinkAdapters_UnwiredAreNoOps verifies the late-bound links drop
// calls safely until their targets are stored. The bridge registers its
// event handler before the scene engine and discovery manager exist, so
// an early event must not panic.
func TestLinkAdapters_UnwiredAreNoOps(t *testing.T) {
	var sceneLink sceneActivatorLink
	if err := sceneLink.ActivateForButton(context.Background(), "sw-01", 0); err != nil {
		t.Errorf("unwired scene link error = %v, want nil", err)
	}

	discoveryLink := &discoveryTriggerLink{log: logging.Default()}
	discoveryLink.trigger(true)
}

// TestGetConfigPath_Default verifies the default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("ZENGW_CONFIG", "")
	os.Unsetenv("ZENGW_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies the environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("ZENGW_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
