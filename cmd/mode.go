package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/finx/internal/shared"
	"github.com/desertthunder/finx/internal/storage"
	"github.com/urfave/cli/v3"
)

// ModeGet prints the active storage mode.
func (r *Runner) ModeGet(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s\n", r.registry.Mode())
}

// ModeSet switches the active storage mode and persists the choice so
// later invocations start there.
func (r *Runner) ModeSet(ctx context.Context, cmd *cli.Command) error {
	requested := cmd.StringArg("mode")
	if requested == "" {
		return fmt.Errorf("%w: mode (cloud, local, demo)", shared.ErrMissingArgument)
	}

	mode, err := storage.ParseMode(requested)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	previous := r.registry.Mode()
	if err := r.registry.SetMode(ctx, mode); err != nil {
		return fmt.Errorf("failed to switch mode: %w", err)
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			r.config.Storage.Mode = string(mode)
			if err := shared.SaveConfig(r.configPath, r.config); err != nil {
				r.logger.Warn("mode switched but not persisted", "error", err)
			}
		}
	}

	if previous == mode {
		return r.writePlain("Storage mode already %s\n", mode)
	}
	return r.writePlain("Storage mode: %s → %s\n", previous, mode)
}
