package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/finx/internal/storage"
	"github.com/desertthunder/finx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// RecurringRun materializes every due schedule into transactions.
func (r *Runner) RecurringRun(ctx context.Context, cmd *cli.Command) error {
	tenant := r.tenant(cmd)
	r.logger.Info("running recurring schedules", "tenant", tenant, "mode", r.registry.Mode())

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := r.scheduler.Run(ctx, progressCh, tenant, "scheduler")
	close(progressCh)
	<-done
	if err != nil {
		return fmt.Errorf("recurring run failed: %w", err)
	}

	r.writePlainHeader("Recurring Run Complete")
	r.writePlain("Transactions created: %d\n", result.Materialized)
	if result.Failed > 0 {
		r.writePlain("Schedules failed: %d\n", result.Failed)
		for _, entityErr := range result.Errors {
			r.writePlain("  - %v\n", entityErr.Err)
		}
		return fmt.Errorf("%d schedules failed", result.Failed)
	}
	return nil
}

// DemoSeed loads the sample dataset into the in-memory demo backend.
func (r *Runner) DemoSeed(ctx context.Context, cmd *cli.Command) error {
	if r.registry.Mode() != storage.ModeDemo {
		return fmt.Errorf("demo seed requires demo mode, active mode is %s", r.registry.Mode())
	}
	mem, ok := r.registry.Backend().(*storage.MemoryBackend)
	if !ok {
		return fmt.Errorf("demo backend is not in-memory")
	}

	tenant := r.tenant(cmd)
	if err := storage.SeedDemoData(ctx, mem, tenant); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	r.writePlain("Seeded demo dataset for tenant %s\n", tenant)
	return nil
}
