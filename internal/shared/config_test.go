package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./finx.db" {
			t.Errorf("expected database path ./finx.db, got %s", config.Database.Path)
		}

		if config.Cloud.BaseURL != "http://localhost:8080" {
			t.Errorf("expected cloud base URL http://localhost:8080, got %s", config.Cloud.BaseURL)
		}

		if config.Storage.Mode != "demo" {
			t.Errorf("expected startup mode demo, got %s", config.Storage.Mode)
		}

		if config.Storage.CascadePolicy != "orphan" {
			t.Errorf("expected cascade policy orphan, got %s", config.Storage.CascadePolicy)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[cloud]
base_url = "https://sync.example.com"
rate_limit = 2.5
timeout_seconds = 10

[storage]
mode = "local"
cascade_policy = "cascade"
tenant = "household"

[export]
output_dir = "/tmp/exports"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Cloud.RateLimit != 2.5 {
			t.Errorf("expected rate limit 2.5, got %f", config.Cloud.RateLimit)
		}

		if config.Storage.Mode != "local" {
			t.Errorf("expected mode local, got %s", config.Storage.Mode)
		}

		if config.Export.OutputDir != "/tmp/exports" {
			t.Errorf("expected output dir /tmp/exports, got %s", config.Export.OutputDir)
		}
	})
}
