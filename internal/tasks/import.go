package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/desertthunder/finx/internal/codec"
	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/storage"
)

// ImportErrorKind classifies a rejected record.
type ImportErrorKind string

const (
	ErrKindRequired          ImportErrorKind = "required"
	ErrKindInvalidFormat     ImportErrorKind = "invalid_format"
	ErrKindInvalidType       ImportErrorKind = "invalid_type"
	ErrKindInvalidValue      ImportErrorKind = "invalid_value"
	ErrKindDuplicate         ImportErrorKind = "duplicate"
	ErrKindMissingDependency ImportErrorKind = "missing_dependency"
)

// ImportError describes one rejected record. Row is the 1-based data row
// within the entity's file, counted below the header.
type ImportError struct {
	Table    string
	Row      int
	RecordID string
	Field    string
	Kind     ImportErrorKind
	Message  string
}

func (e ImportError) Error() string {
	return fmt.Sprintf("%s row %d (%s): %s", e.Table, e.Row, e.Kind, e.Message)
}

// ImportOpts controls duplicate handling and failure behavior.
// DefaultImportOpts returns the standard configuration; the zero value
// rejects duplicates instead of skipping them.
type ImportOpts struct {
	// SkipDuplicates silently skips records whose id or unique field
	// tuple already exists. When false a duplicate is an error.
	SkipDuplicates bool
	// ContinueOnError keeps going past rejected records, importing the
	// valid remainder. When false the first rejection fails the whole
	// run before anything is written.
	ContinueOnError bool
	// ValidateOnly runs the parse and validation phases without writing.
	ValidateOnly bool
	// Tables restricts the run to the named entity types. Empty imports
	// every file in the envelope.
	Tables []string
}

// DefaultImportOpts skips duplicates, stops on the first error, and
// writes.
func DefaultImportOpts() ImportOpts {
	return ImportOpts{SkipDuplicates: true}
}

// EntityTally summarizes one entity's records across a restore run.
type EntityTally struct {
	Total  int // Data rows in the entity's file
	Failed int // Rows rejected by any phase
}

// ImportResult reports what a restore run did.
type ImportResult struct {
	Success  bool
	Imported map[string]int         // Records written, per entity
	Skipped  map[string]int         // Duplicates skipped, per entity
	Entities map[string]EntityTally // Per-entity row totals and failures
	Errors   []ImportError
	Warnings []string
}

// finalize derives per-entity failure counts from the collected errors.
// Several errors on one row count that row once.
func (r *ImportResult) finalize() {
	seen := make(map[string]map[int]bool)
	for _, e := range r.Errors {
		rows := seen[e.Table]
		if rows == nil {
			rows = make(map[int]bool)
			seen[e.Table] = rows
		}
		if rows[e.Row] {
			continue
		}
		rows[e.Row] = true

		tally := r.Entities[e.Table]
		tally.Failed++
		r.Entities[e.Table] = tally
	}
}

// ImportEngine restores a portable snapshot into the active backend:
// parse every file, validate every record against the model registry and
// the live dataset, then write in dependency order so references resolve.
type ImportEngine struct {
	store Store
}

// NewImportEngine creates an import engine over the given store.
func NewImportEngine(store Store) *ImportEngine {
	return &ImportEngine{store: store}
}

// parsedTable is one entity file after decoding, before validation.
type parsedTable struct {
	cfg     models.ModelConfig
	records []map[string]string
}

// pendingRecord is a validated record queued for the write phase.
type pendingRecord struct {
	row models.Row
	num int // data row number, for write-phase error reporting
}

// Run restores the envelope into the tenant's dataset. The run is
// idempotent under the default options: re-importing a snapshot skips
// every record it already wrote.
//
// Exported tenant ids are discarded: every restored record belongs to
// the target tenant passed here.
func (e *ImportEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, tenant string, env *codec.Envelope, opts ImportOpts) (*ImportResult, error) {
	if env == nil || len(env.Files) == 0 {
		return nil, errors.New("empty envelope: nothing to import")
	}
	selected, err := selectConfigs(opts.Tables)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(selected))
	for _, cfg := range selected {
		wanted[cfg.Table] = true
	}

	result := &ImportResult{
		Imported: make(map[string]int),
		Skipped:  make(map[string]int),
		Entities: make(map[string]EntityTally),
	}
	fail := func() (*ImportResult, error) {
		result.finalize()
		sendProgress(progress, importFailedUpdate(len(result.Errors)))
		return result, nil
	}

	tables, ok := e.parse(progress, env, wanted, result, opts)
	if !ok {
		return fail()
	}

	pending, ok := e.validate(ctx, progress, tenant, tables, result, opts)
	if !ok {
		return fail()
	}

	if opts.ValidateOnly {
		result.finalize()
		result.Success = len(result.Errors) == 0
		sendProgress(progress, importCompleteUpdate(0, total(result.Skipped)))
		return result, nil
	}

	if ok := e.write(ctx, progress, pending, result, opts); !ok {
		return fail()
	}

	result.finalize()
	result.Success = len(result.Errors) == 0
	if result.Success {
		sendProgress(progress, importCompleteUpdate(total(result.Imported), total(result.Skipped)))
	} else {
		sendProgress(progress, importFailedUpdate(len(result.Errors)))
	}
	return result, nil
}

// parse decodes the selected envelope files. An unknown entity file or an
// undecodable file is a fatal setup error and ends the run before anything
// is written, regardless of ContinueOnError; that option only absorbs
// per-record errors, such as malformed rows within a well-formed file.
func (e *ImportEngine) parse(progress chan<- ProgressUpdate, env *codec.Envelope, wanted map[string]bool, result *ImportResult, opts ImportOpts) (map[string]parsedTable, bool) {
	tables := make(map[string]parsedTable, len(env.Files))

	for i, file := range env.Files {
		if len(opts.Tables) > 0 && !wanted[file.FileName] {
			continue
		}

		cfg, err := models.Config(file.FileName)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{
				Table: file.FileName, Kind: ErrKindInvalidValue,
				Message: "unknown entity file",
			})
			return nil, false
		}

		_, records, rowErrs, err := codec.DecodeTable(file.Content)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{
				Table: cfg.Table, Kind: ErrKindInvalidFormat, Message: err.Error(),
			})
			return nil, false
		}
		result.Entities[cfg.Table] = EntityTally{Total: len(records) + len(rowErrs)}
		for _, re := range rowErrs {
			result.Errors = append(result.Errors, ImportError{
				Table: cfg.Table, Row: re.Line - 1,
				Kind: ErrKindInvalidFormat, Message: re.Err.Error(),
			})
			if !opts.ContinueOnError {
				return nil, false
			}
		}

		tables[cfg.Table] = parsedTable{cfg: cfg, records: records}
		sendProgress(progress, importParseUpdate(i+1, len(env.Files), cfg.Table, len(records)))
	}
	return tables, true
}

// validate checks every parsed record in dependency order: required
// fields, value formats, foreign keys, currency codes, and duplicates
// against both the live dataset and the batch itself. Nothing is written
// until every record has been seen.
func (e *ImportEngine) validate(ctx context.Context, progress chan<- ProgressUpdate, tenant string, tables map[string]parsedTable, result *ImportResult, opts ImportOpts) (map[string][]pendingRecord, bool) {
	configs := models.ModelsInOrder()

	// Ids and unique tuples already live in the backend, per entity. A
	// record created earlier in the batch also satisfies later references.
	knownIDs := make(map[string]map[string]bool, len(configs))
	existingKeys := make(map[string]map[string]bool, len(configs))
	for _, cfg := range configs {
		ids, keys, err := e.snapshot(ctx, cfg, tenant)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{
				Table: cfg.Table, Kind: ErrKindInvalidValue,
				Message: fmt.Sprintf("failed to read existing records: %v", err),
			})
			return nil, false
		}
		knownIDs[cfg.Table] = ids
		existingKeys[cfg.Table] = keys
	}

	// An entity type is available to dependents when its file is in the
	// batch or the backend already holds records of it.
	available := make(map[string]bool, len(configs))
	for table, ids := range knownIDs {
		if len(ids) > 0 {
			available[table] = true
		}
	}
	for table := range tables {
		available[table] = true
	}

	pending := make(map[string][]pendingRecord, len(tables))
	batchKeys := make(map[string]map[string]bool, len(tables))

	step := 0
	for _, cfg := range configs {
		pt, present := tables[cfg.Table]
		if !present {
			continue
		}
		step++
		sendProgress(progress, importValidateUpdate(step, len(tables), cfg.Table))
		batchKeys[cfg.Table] = make(map[string]bool)

		if !models.ValidateDependenciesSatisfied(cfg.Table, available) {
			for _, dep := range cfg.Dependencies {
				if !available[dep] {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("%s: no %s records in the snapshot or backend; references cannot resolve", cfg.Table, dep))
				}
			}
		}

		fields := importFields(cfg)
		for i, raw := range pt.records {
			num := i + 1
			rec := restrict(raw, fields)
			rec[models.FieldTenantID] = tenant
			id := strings.TrimSpace(rec[models.FieldID])

			recErrs := validateRecord(cfg, rec, num, id, knownIDs)
			if len(recErrs) > 0 {
				result.Errors = append(result.Errors, recErrs...)
				if !opts.ContinueOnError {
					return nil, false
				}
				continue
			}

			// Duplicate detection on the id and the normalized unique
			// tuple, against the backend and the batch so far.
			key := uniqueKey(cfg, rec)
			if (id != "" && knownIDs[cfg.Table][id]) ||
				existingKeys[cfg.Table][key] || batchKeys[cfg.Table][key] {
				if opts.SkipDuplicates {
					result.Skipped[cfg.Table]++
					continue
				}
				result.Errors = append(result.Errors, ImportError{
					Table: cfg.Table, Row: num, RecordID: id,
					Kind: ErrKindDuplicate, Message: "record already exists",
				})
				if !opts.ContinueOnError {
					return nil, false
				}
				continue
			}

			row, err := codec.RestoreRow(cfg, rec)
			if err != nil {
				result.Errors = append(result.Errors, ImportError{
					Table: cfg.Table, Row: num, RecordID: id,
					Kind: ErrKindInvalidFormat, Message: err.Error(),
				})
				if !opts.ContinueOnError {
					return nil, false
				}
				continue
			}

			pending[cfg.Table] = append(pending[cfg.Table], pendingRecord{row: row, num: num})
			if id != "" {
				knownIDs[cfg.Table][id] = true
			}
			batchKeys[cfg.Table][key] = true
		}
	}
	return pending, true
}

// write creates the validated records in dependency order.
func (e *ImportEngine) write(ctx context.Context, progress chan<- ProgressUpdate, pending map[string][]pendingRecord, result *ImportResult, opts ImportOpts) bool {
	step := 0
	for _, cfg := range models.ModelsInOrder() {
		queue := pending[cfg.Table]
		if len(queue) == 0 {
			continue
		}
		step++
		sendProgress(progress, importWriteUpdate(step, len(pending), cfg.Table))

		repo, err := e.store.Entity(cfg.Table)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{
				Table: cfg.Table, Kind: ErrKindInvalidValue, Message: err.Error(),
			})
			return false
		}

		for _, rec := range queue {
			select {
			case <-ctx.Done():
				result.Errors = append(result.Errors, ImportError{
					Table: cfg.Table, Row: rec.num, Kind: ErrKindInvalidValue,
					Message: ctx.Err().Error(),
				})
				return false
			default:
			}

			if _, err := repo.Create(ctx, rec.row); err != nil {
				var dup *storage.DuplicateRecordError
				if errors.As(err, &dup) && opts.SkipDuplicates {
					result.Skipped[cfg.Table]++
					continue
				}
				result.Errors = append(result.Errors, ImportError{
					Table: cfg.Table, Row: rec.num,
					RecordID: rec.row.String(models.FieldID),
					Kind:     classifyWriteError(err), Message: err.Error(),
				})
				if !opts.ContinueOnError {
					return false
				}
				continue
			}
			result.Imported[cfg.Table]++
		}
	}
	return true
}

// snapshot loads the live ids and unique tuples for one entity.
func (e *ImportEngine) snapshot(ctx context.Context, cfg models.ModelConfig, tenant string) (ids, keys map[string]bool, err error) {
	repo, err := e.store.Entity(cfg.Table)
	if err != nil {
		return nil, nil, err
	}
	rows, err := repo.GetAll(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}

	ids = make(map[string]bool, len(rows))
	keys = make(map[string]bool, len(rows))
	for _, row := range rows {
		ids[row.String(models.FieldID)] = true
		keys[storage.UniqueKey(cfg, row)] = true
	}
	return ids, keys, nil
}

// validateRecord applies the per-record checks that need no backend
// access beyond the preloaded id sets.
func validateRecord(cfg models.ModelConfig, rec map[string]string, num int, id string, knownIDs map[string]map[string]bool) []ImportError {
	var errs []ImportError
	addErr := func(field string, kind ImportErrorKind, msg string) {
		errs = append(errs, ImportError{
			Table: cfg.Table, Row: num, RecordID: id,
			Field: field, Kind: kind, Message: msg,
		})
	}

	for _, field := range cfg.RequiredFields {
		if strings.TrimSpace(rec[field]) == "" {
			addErr(field, ErrKindRequired, "required field is empty")
		}
	}

	for _, field := range cfg.DateFields {
		if v := rec[field]; v != "" {
			if _, err := codec.ParseField(cfg, field, v); err != nil {
				addErr(field, ErrKindInvalidFormat, fmt.Sprintf("not an RFC 3339 date: %q", v))
			}
		}
	}
	for _, field := range cfg.NumericFields {
		if v := rec[field]; v != "" {
			if _, err := codec.ParseField(cfg, field, v); err != nil {
				addErr(field, ErrKindInvalidType, fmt.Sprintf("not a number: %q", v))
			}
		}
	}
	for _, field := range cfg.BoolFields {
		if v := rec[field]; v != "" && v != "true" && v != "false" {
			addErr(field, ErrKindInvalidType, fmt.Sprintf("not a boolean: %q", v))
		}
	}

	if cfg.Table == models.TableAccounts {
		if code := strings.TrimSpace(rec["currency"]); code != "" {
			if money.GetCurrency(strings.ToUpper(code)) == nil {
				addErr("currency", ErrKindInvalidValue, fmt.Sprintf("unknown currency code %q", code))
			}
		}
	}

	// Same-table references (transfer pairs) are excluded: both sides of
	// the pair may arrive in the same file in either order.
	for field, target := range cfg.ForeignKeys {
		if target == cfg.Table {
			continue
		}
		if v := strings.TrimSpace(rec[field]); v != "" && !knownIDs[target][v] {
			addErr(field, ErrKindMissingDependency, fmt.Sprintf("no %s record with id %q", target, v))
		}
	}

	return errs
}

func classifyWriteError(err error) ImportErrorKind {
	var dup *storage.DuplicateRecordError
	if errors.As(err, &dup) {
		return ErrKindDuplicate
	}
	var ri *storage.ReferentialIntegrityError
	if errors.As(err, &ri) {
		return ErrKindMissingDependency
	}
	return ErrKindInvalidValue
}

// uniqueKey builds the normalized duplicate tuple from formatted fields.
func uniqueKey(cfg models.ModelConfig, rec map[string]string) string {
	parts := make([]string, 0, len(cfg.UniqueFields)+1)
	for _, field := range models.UniqueKeyFields(cfg) {
		parts = append(parts, storage.Normalize(rec[field]))
	}
	return strings.Join(parts, "\x1f")
}

func restrict(raw map[string]string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := raw[f]; ok {
			out[f] = v
		}
	}
	return out
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
