package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/finx/internal/shared"
	"github.com/desertthunder/finx/internal/storage"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	policy, err := storage.ParseCascadePolicy(config.Storage.CascadePolicy)
	if err != nil {
		logger.Warn("invalid cascade policy, using orphan", "value", config.Storage.CascadePolicy)
		policy = storage.PolicyOrphan
	}

	// The demo backend is a single instance so its dataset survives
	// switching away and back within one process.
	demo := storage.NewMemoryBackend(policy)
	factories := map[storage.Mode]storage.BackendFactory{
		storage.ModeDemo: func(ctx context.Context) (storage.Backend, error) {
			return demo, nil
		},
		storage.ModeLocal: func(ctx context.Context) (storage.Backend, error) {
			return storage.NewSQLiteBackend(
				config.Database.Path, policy,
				config.Database.MaxOpenConns, config.Database.MaxIdleConns,
			), nil
		},
		storage.ModeCloud: func(ctx context.Context) (storage.Backend, error) {
			return storage.NewCloudBackend(storage.CloudOpts{
				BaseURL:    config.Cloud.BaseURL,
				RateLimit:  config.Cloud.RateLimit,
				Policy:     policy,
				HTTPClient: &http.Client{Timeout: time.Duration(config.Cloud.TimeoutSeconds) * time.Second},
			}), nil
		},
	}

	mode, err := storage.ParseMode(config.Storage.Mode)
	if err != nil {
		logger.Warn("invalid startup mode, using demo", "value", config.Storage.Mode)
		mode = storage.ModeDemo
	}

	registry, err := storage.NewModeRegistry(context.Background(), mode, factories, storage.NewInvalidator(nil), logger)
	if err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Registry:   registry,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "finx",
		Usage:    "Personal finance storage with portable import & export",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
