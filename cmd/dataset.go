package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/finx/internal/codec"
	"github.com/desertthunder/finx/internal/shared"
	"github.com/desertthunder/finx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ExportRun exports the tenant's dataset to a snapshot file.
func (r *Runner) ExportRun(ctx context.Context, cmd *cli.Command) error {
	tenant := r.tenant(cmd)
	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Export.OutputDir
	}
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	r.logger.Info("starting export", "tenant", tenant, "mode", r.registry.Mode())

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := r.exporter.Run(ctx, progressCh, tenant, cmd.StringSlice("entity")...)
	close(progressCh)
	<-done
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrExportFailed, err)
	}

	data, err := codec.MarshalEnvelope(result.Envelope)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrExportFailed, err)
	}
	snapshotPath := filepath.Join(outputDir, fmt.Sprintf("finx_export_%d.json", result.Timestamp.Unix()))
	if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if cmd.Bool("split") {
		for _, file := range result.Envelope.Files {
			path := filepath.Join(outputDir, file.FileName+".csv")
			if err := os.WriteFile(path, []byte(file.Content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Snapshot: %s\n", snapshotPath)
	r.writePlain("Records: %d\n", result.Envelope.RecordCount)
	if len(result.Errors) > 0 {
		r.writePlain("\n%d entities failed:\n", len(result.Errors))
		for _, entityErr := range result.Errors {
			r.writePlain("  - %s: %v\n", entityErr.Table, entityErr.Err)
		}
		return fmt.Errorf("%w: %d entities failed", shared.ErrExportFailed, len(result.Errors))
	}
	return nil
}

// ImportRun restores a snapshot file into the active backend.
func (r *Runner) ImportRun(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: snapshot file", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	// A .json file is a whole-dataset envelope; anything else is a single
	// entity file named after its entity type.
	var env *codec.Envelope
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if env, err = codec.UnmarshalEnvelope(data); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrImportFailed, err)
		}
	} else {
		table := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		env = codec.EnvelopeForFile(table, string(data))
	}

	tenant := r.tenant(cmd)
	opts := tasks.ImportOpts{
		SkipDuplicates:  cmd.Bool("skip-duplicates"),
		ContinueOnError: cmd.Bool("continue-on-error"),
		ValidateOnly:    cmd.Bool("dry-run"),
		Tables:          cmd.StringSlice("entity"),
	}

	r.logger.Info("starting import", "file", path, "tenant", tenant, "mode", r.registry.Mode())

	start := time.Now()
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := r.importer.Run(ctx, progressCh, tenant, env, opts)
	close(progressCh)
	<-done
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrImportFailed, err)
	}

	title := "Import Complete"
	if opts.ValidateOnly {
		title = "Validation Complete"
	}
	r.writePlainHeader(title)
	r.writePlain("Duration: %s\n", time.Since(start).Round(time.Millisecond))
	for table, count := range result.Imported {
		r.writePlain("  %s: %d imported\n", table, count)
	}
	for table, count := range result.Skipped {
		r.writePlain("  %s: %d skipped\n", table, count)
	}
	for _, warning := range result.Warnings {
		r.writePlain("  warning: %s\n", warning)
	}

	if len(result.Errors) > 0 {
		r.writePlain("\n%d records rejected:\n", len(result.Errors))
		for _, importErr := range result.Errors {
			r.writePlain("  - %s\n", importErr.Error())
		}
	}
	if !result.Success {
		return fmt.Errorf("%w: %d records rejected", shared.ErrImportFailed, len(result.Errors))
	}
	return nil
}
