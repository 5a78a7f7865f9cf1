package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/shared"
	"github.com/shopspring/decimal"
)

// SQLiteBackend is the local-mode adapter: an embedded on-device database.
// Closing the backend releases the connection only; reopening the same path
// restores the dataset left there.
type SQLiteBackend struct {
	path   string
	policy CascadePolicy

	maxOpenConns int
	maxIdleConns int

	db    *sql.DB
	balMu sync.Mutex
}

// NewSQLiteBackend creates a local backend for the database at path. The
// path may be ":memory:" in tests.
func NewSQLiteBackend(path string, policy CascadePolicy, maxOpenConns, maxIdleConns int) *SQLiteBackend {
	return &SQLiteBackend{
		path:         path,
		policy:       policy,
		maxOpenConns: maxOpenConns,
		maxIdleConns: maxIdleConns,
	}
}

func (b *SQLiteBackend) Name() string { return string(ModeLocal) }

// Init opens the connection and applies pending migrations. Calling Init on
// an open backend is a no-op.
func (b *SQLiteBackend) Init(ctx context.Context) error {
	if b.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(b.path)
	if err != nil {
		return wrapOp("init", "", "", err)
	}
	if b.maxOpenConns > 0 {
		shared.ConfigureDatabase(db, b.maxOpenConns, b.maxIdleConns)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return wrapOp("init", "", "", err)
	}

	b.db = db
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *SQLiteBackend) Entity(table string) (EntityRepository, error) {
	cfg, err := models.Config(table)
	if err != nil {
		return nil, wrapOp("entity", table, "", err)
	}
	return &sqliteRepo{backend: b, cfg: cfg}, nil
}

// AdjustBalance applies the delta inside a transaction so the
// read-modify-write is indivisible. A backend-level mutex serializes Go
// callers; sqlite's single-writer locking covers the file itself.
func (b *SQLiteBackend) AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error {
	if b.db == nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, fmt.Errorf("backend not initialized"))
	}

	b.balMu.Lock()
	defer b.balMu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ? AND tenantid = ? AND isdeleted = 0`,
		id, tenant,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, &RecordNotFoundError{Table: models.TableAccounts, ID: id})
	}
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updatedat = ? WHERE id = ? AND tenantid = ?`,
		balance.Add(delta).String(), time.Now().UTC().Format(time.RFC3339), id, tenant,
	)
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}
	return nil
}

type sqliteRepo struct {
	backend *SQLiteBackend
	cfg     models.ModelConfig
}

// quoteIdent wraps a column name in double quotes; "table" and "key" on the
// configurations entity collide with SQL keywords otherwise.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

func (r *sqliteRepo) columns() string {
	quoted := make([]string, len(r.cfg.Fields))
	for i, f := range r.cfg.Fields {
		quoted[i] = quoteIdent(f)
	}
	return strings.Join(quoted, ", ")
}

// bindValue converts a Row value to its stored representation: dates as
// RFC 3339 text, decimals as plain decimal text, bools as 0/1.
func bindValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		return t.String()
	case bool:
		if t {
			return 1
		}
		return 0
	case nil:
		return ""
	default:
		return v
	}
}

// restoreValue converts a scanned column back to the Row representation
// using the entity's field hints.
func (r *sqliteRepo) restoreValue(field string, v any) (any, error) {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case []byte:
		s = string(t)
	case string:
		s = t
	case int64:
		for _, f := range r.cfg.BoolFields {
			if f == field {
				return t != 0, nil
			}
		}
		return t, nil
	default:
		return v, nil
	}

	for _, f := range r.cfg.BoolFields {
		if f == field {
			return s == "1" || s == "true", nil
		}
	}
	for _, f := range r.cfg.DateFields {
		if f == field {
			if s == "" {
				return time.Time{}, nil
			}
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			return ts, nil
		}
	}
	for _, f := range r.cfg.NumericFields {
		if f == field {
			if s == "" {
				return decimal.Zero, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			return d, nil
		}
	}
	return s, nil
}

func (r *sqliteRepo) scanRow(scan func(dest ...any) error) (models.Row, error) {
	dest := make([]any, len(r.cfg.Fields))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	row := make(models.Row, len(r.cfg.Fields))
	for i, field := range r.cfg.Fields {
		value, err := r.restoreValue(field, *(dest[i].(*any)))
		if err != nil {
			return nil, err
		}
		row[field] = value
	}
	return row, nil
}

func (r *sqliteRepo) GetAll(ctx context.Context, tenant string) ([]models.Row, error) {
	if r.backend.db == nil {
		return nil, wrapOp("getall", r.cfg.Table, tenant, fmt.Errorf("backend not initialized"))
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE tenantid = ? AND isdeleted = 0 ORDER BY id ASC`,
		r.columns(), r.cfg.Table,
	)
	rows, err := r.backend.db.QueryContext(ctx, query, tenant)
	if err != nil {
		return nil, wrapOp("getall", r.cfg.Table, tenant, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		row, err := r.scanRow(rows.Scan)
		if err != nil {
			return nil, wrapOp("getall", r.cfg.Table, tenant, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapOp("getall", r.cfg.Table, tenant, err)
	}
	return out, nil
}

func (r *sqliteRepo) GetByID(ctx context.Context, id, tenant string) (models.Row, error) {
	if r.backend.db == nil {
		return nil, wrapOp("get", r.cfg.Table, tenant, fmt.Errorf("backend not initialized"))
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = ? AND tenantid = ? AND isdeleted = 0`,
		r.columns(), r.cfg.Table,
	)
	row, err := r.scanRow(r.backend.db.QueryRowContext(ctx, query, id, tenant).Scan)
	if err == sql.ErrNoRows {
		return nil, wrapOp("get", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	if err != nil {
		return nil, wrapOp("get", r.cfg.Table, tenant, err)
	}
	return row, nil
}

func (r *sqliteRepo) Create(ctx context.Context, rec models.Row) (models.Row, error) {
	tenant := rec.String(models.FieldTenantID)
	row := rec.Clone()

	if err := validateCreate(ctx, r.backend, r.cfg, row); err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}

	if row.Empty(models.FieldID) {
		row[models.FieldID] = shared.GenerateID()
	}
	now := time.Now().UTC()
	if row.Empty(models.FieldCreatedAt) {
		row[models.FieldCreatedAt] = now
	}
	row[models.FieldUpdatedAt] = now
	row[models.FieldIsDeleted] = false

	args := make([]any, len(r.cfg.Fields))
	placeholders := make([]string, len(r.cfg.Fields))
	for i, field := range r.cfg.Fields {
		args[i] = bindValue(row[field])
		placeholders[i] = "?"
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		r.cfg.Table, r.columns(), strings.Join(placeholders, ", "),
	)
	if _, err := r.backend.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrapOp("create", r.cfg.Table, tenant, err)
	}
	return row, nil
}

func (r *sqliteRepo) Update(ctx context.Context, patch models.Row) (models.Row, error) {
	tenant := patch.String(models.FieldTenantID)
	id := patch.String(models.FieldID)

	if err := validateUpdate(ctx, r.backend, r.cfg, patch); err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}

	var sets []string
	var args []any
	for _, field := range r.cfg.Fields {
		switch field {
		case models.FieldID, models.FieldTenantID, models.FieldCreatedAt, models.FieldCreatedBy, models.FieldIsDeleted:
			continue
		}
		if _, ok := patch[field]; !ok {
			continue
		}
		sets = append(sets, quoteIdent(field)+" = ?")
		args = append(args, bindValue(patch[field]))
	}
	sets = append(sets, `updatedat = ?`)
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	args = append(args, id, tenant)

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = ? AND tenantid = ? AND isdeleted = 0`,
		r.cfg.Table, strings.Join(sets, ", "),
	)
	result, err := r.backend.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}
	if affected == 0 {
		return nil, wrapOp("update", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}

	return r.GetByID(ctx, id, tenant)
}

func (r *sqliteRepo) Delete(ctx context.Context, id, tenant, actor string) error {
	if err := r.softDelete(ctx, r.cfg.Table, id, tenant, actor); err != nil {
		return wrapOp("delete", r.cfg.Table, tenant, err)
	}
	return nil
}

func (r *sqliteRepo) softDelete(ctx context.Context, table, id, tenant, actor string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET isdeleted = 1, updatedat = ?, updatedby = ? WHERE id = ? AND tenantid = ? AND isdeleted = 0`,
		table,
	)
	result, err := r.backend.db.ExecContext(ctx, query,
		time.Now().UTC().Format(time.RFC3339), actor, id, tenant)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &RecordNotFoundError{Table: table, ID: id}
	}

	if r.backend.policy != PolicyCascade {
		return nil
	}
	for _, dep := range models.DependentsOf(table) {
		childQuery := fmt.Sprintf(
			`SELECT id FROM %s WHERE %s = ? AND tenantid = ? AND isdeleted = 0`,
			dep.Table, quoteIdent(dep.Field),
		)
		rows, err := r.backend.db.QueryContext(ctx, childQuery, id, tenant)
		if err != nil {
			return err
		}
		var childIDs []string
		for rows.Next() {
			var childID string
			if err := rows.Scan(&childID); err != nil {
				rows.Close()
				return err
			}
			childIDs = append(childIDs, childID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, childID := range childIDs {
			if err := r.softDelete(ctx, dep.Table, childID, tenant, actor); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *sqliteRepo) Restore(ctx context.Context, id, tenant, actor string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET isdeleted = 0, updatedat = ?, updatedby = ? WHERE id = ? AND tenantid = ? AND isdeleted = 1`,
		r.cfg.Table,
	)
	result, err := r.backend.db.ExecContext(ctx, query,
		time.Now().UTC().Format(time.RFC3339), actor, id, tenant)
	if err != nil {
		return wrapOp("restore", r.cfg.Table, tenant, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapOp("restore", r.cfg.Table, tenant, err)
	}
	if affected == 0 {
		return wrapOp("restore", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	return nil
}
