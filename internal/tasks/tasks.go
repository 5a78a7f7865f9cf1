// package tasks implements dataset round trips and schedule runs over the
// active storage backend.
//
// The core abstractions are ExportEngine, which walks the tracked entities
// in dependency order and assembles a portable snapshot, and ImportEngine,
// which restores one with validation, duplicate handling, and dependency
// ordering. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers.
package tasks

import (
	"context"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/storage"
	"github.com/shopspring/decimal"
)

// Store is the slice of the mode registry the engines need: repository
// resolution and atomic balance deltas against whichever backend is
// active. Both storage.ModeRegistry and the individual backends satisfy
// it.
type Store interface {
	Entity(table string) (storage.EntityRepository, error)
	AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error
}

// EntityError records a per-entity failure during an export walk. One
// entity failing does not abort the others.
type EntityError struct {
	Table string
	Err   error
}

func (e EntityError) Error() string {
	return e.Table + ": " + e.Err.Error()
}

// selectConfigs resolves an optional entity-type subset against the
// registry, preserving rank order. An empty subset selects every entity.
func selectConfigs(tables []string) ([]models.ModelConfig, error) {
	all := models.ModelsInOrder()
	if len(tables) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(tables))
	for _, table := range tables {
		if _, err := models.Config(table); err != nil {
			return nil, err
		}
		want[table] = true
	}

	configs := make([]models.ModelConfig, 0, len(want))
	for _, cfg := range all {
		if want[cfg.Table] {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

// exportFields returns the portable field set for an entity in canonical
// column order: the declared fields minus the ignored and export-ignored
// sets, narrowed to the allow-list when one is declared.
func exportFields(cfg models.ModelConfig) []string {
	return filterFields(cfg, cfg.IgnoredExportFields)
}

// importFields returns the accepted field set for restoring an entity.
func importFields(cfg models.ModelConfig) []string {
	return filterFields(cfg, cfg.IgnoredImportFields)
}

func filterFields(cfg models.ModelConfig, alsoIgnored []string) []string {
	ignored := make(map[string]bool, len(cfg.IgnoredFields)+len(alsoIgnored))
	for _, f := range cfg.IgnoredFields {
		ignored[f] = true
	}
	for _, f := range alsoIgnored {
		ignored[f] = true
	}

	var allowed map[string]bool
	if len(cfg.AllowedFields) > 0 {
		allowed = make(map[string]bool, len(cfg.AllowedFields))
		for _, f := range cfg.AllowedFields {
			allowed[f] = true
		}
	}

	out := make([]string, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if ignored[f] {
			continue
		}
		if allowed != nil && !allowed[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
