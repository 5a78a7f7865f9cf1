package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/finx/internal/codec"
	"github.com/desertthunder/finx/internal/models"
)

// ExportResult contains everything produced by a dataset export.
type ExportResult struct {
	Success      bool             // True when every entity exported cleanly
	Envelope     *codec.Envelope  // Assembled snapshot, one file per entity
	RecordCounts map[string]int   // Exported records per entity
	Errors       []EntityError    // Entities that failed to export
	Timestamp    time.Time        // Export time, also stamped on the envelope
}

// ExportEngine walks the tracked entities in dependency order and encodes
// each one's live records into the portable text format.
type ExportEngine struct {
	store Store
}

// NewExportEngine creates an export engine over the given store.
func NewExportEngine(store Store) *ExportEngine {
	return &ExportEngine{store: store}
}

// Run exports the tenant's dataset. When tables are named only those
// entities export; by default every entity does. Entities are walked in
// rank order so the resulting envelope restores without forward
// references. One entity failing yields an empty placeholder file and an
// entry in Errors; the remaining entities still export. Only context
// cancellation or an unknown table name aborts the walk.
func (e *ExportEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, tenant string, tables ...string) (*ExportResult, error) {
	configs, err := selectConfigs(tables)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{
		RecordCounts: make(map[string]int, len(configs)),
		Timestamp:    time.Now().UTC(),
	}

	files := make([]codec.File, 0, len(configs))
	totalRecords := 0

	for i, cfg := range configs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		header := exportFields(cfg)
		content, count, err := e.exportEntity(ctx, cfg, header, tenant)
		if err != nil {
			result.Errors = append(result.Errors, EntityError{Table: cfg.Table, Err: err})
			sendProgress(progress, exportFailedUpdate(i+1, len(configs), cfg.Table, err))

			// Placeholder so the envelope stays structurally complete.
			placeholder, encErr := codec.EncodeTable(header, nil)
			if encErr != nil {
				return nil, fmt.Errorf("failed to encode placeholder for %s: %w", cfg.Table, encErr)
			}
			files = append(files, codec.File{FileName: cfg.Table, Content: placeholder})
			result.RecordCounts[cfg.Table] = 0
			continue
		}

		files = append(files, codec.File{FileName: cfg.Table, Content: content, RecordCount: count})
		result.RecordCounts[cfg.Table] = count
		totalRecords += count
		sendProgress(progress, exportEntityUpdate(i+1, len(configs), cfg.Table, count))
	}

	result.Envelope = &codec.Envelope{
		Timestamp:   result.Timestamp,
		RecordCount: totalRecords,
		Files:       files,
	}
	result.Success = len(result.Errors) == 0
	sendProgress(progress, exportAssembleUpdate(len(files), totalRecords))
	return result, nil
}

func (e *ExportEngine) exportEntity(ctx context.Context, cfg models.ModelConfig, header []string, tenant string) (string, int, error) {
	repo, err := e.store.Entity(cfg.Table)
	if err != nil {
		return "", 0, err
	}
	rows, err := repo.GetAll(ctx, tenant)
	if err != nil {
		return "", 0, err
	}
	content, err := codec.EncodeTable(header, rows)
	if err != nil {
		return "", 0, err
	}
	return content, len(rows), nil
}
