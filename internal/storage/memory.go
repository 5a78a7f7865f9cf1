package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/shared"
	"github.com/shopspring/decimal"
)

// MemoryBackend is the demo-mode adapter: an in-memory, mutex-guarded store
// with the same contract as the persistent backends. Its dataset survives
// Close so that switching away from demo mode and back restores exactly the
// data left there.
type MemoryBackend struct {
	mu      sync.RWMutex
	writeMu sync.Mutex

	// table -> tenant -> id -> row
	data map[string]map[string]map[string]models.Row

	balanceMu sync.Mutex
	balances  map[string]*sync.Mutex

	policy CascadePolicy
}

// NewMemoryBackend creates an empty demo backend with the given cascade
// policy.
func NewMemoryBackend(policy CascadePolicy) *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string]map[string]map[string]models.Row),
		balances: make(map[string]*sync.Mutex),
		policy:   policy,
	}
}

func (b *MemoryBackend) Name() string { return string(ModeDemo) }

func (b *MemoryBackend) Init(ctx context.Context) error { return nil }

// Close releases nothing: the demo dataset is intentionally retained
// across mode switches.
func (b *MemoryBackend) Close() error { return nil }

func (b *MemoryBackend) Entity(table string) (EntityRepository, error) {
	cfg, err := models.Config(table)
	if err != nil {
		return nil, wrapOp("entity", table, "", err)
	}
	return &memoryRepo{backend: b, cfg: cfg}, nil
}

// AdjustBalance applies the delta under a per-account lock so concurrent
// adjustments on the same account never lose an application.
func (b *MemoryBackend) AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error {
	lock := b.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.lookup(models.TableAccounts, tenant, id)
	if !ok || row.Bool(models.FieldIsDeleted) {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, &RecordNotFoundError{Table: models.TableAccounts, ID: id})
	}

	balance, err := row.Decimal("balance")
	if err != nil {
		return wrapOp("adjustbalance", models.TableAccounts, tenant, err)
	}
	row["balance"] = balance.Add(delta)
	row[models.FieldUpdatedAt] = time.Now().UTC()
	return nil
}

func (b *MemoryBackend) lockFor(id string) *sync.Mutex {
	b.balanceMu.Lock()
	defer b.balanceMu.Unlock()
	lock, ok := b.balances[id]
	if !ok {
		lock = &sync.Mutex{}
		b.balances[id] = lock
	}
	return lock
}

// lookup returns the stored row itself; callers must hold the appropriate
// lock and clone before handing rows out.
func (b *MemoryBackend) lookup(table, tenant, id string) (models.Row, bool) {
	tenants, ok := b.data[table]
	if !ok {
		return nil, false
	}
	rows, ok := tenants[tenant]
	if !ok {
		return nil, false
	}
	row, ok := rows[id]
	return row, ok
}

func (b *MemoryBackend) bucket(table, tenant string) map[string]models.Row {
	tenants, ok := b.data[table]
	if !ok {
		tenants = make(map[string]map[string]models.Row)
		b.data[table] = tenants
	}
	rows, ok := tenants[tenant]
	if !ok {
		rows = make(map[string]models.Row)
		tenants[tenant] = rows
	}
	return rows
}

type memoryRepo struct {
	backend *MemoryBackend
	cfg     models.ModelConfig
}

func (r *memoryRepo) GetAll(ctx context.Context, tenant string) ([]models.Row, error) {
	r.backend.mu.RLock()
	defer r.backend.mu.RUnlock()

	var out []models.Row
	if tenants, ok := r.backend.data[r.cfg.Table]; ok {
		for _, row := range tenants[tenant] {
			if row.Bool(models.FieldIsDeleted) {
				continue
			}
			out = append(out, row.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String(models.FieldID) < out[j].String(models.FieldID)
	})
	return out, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id, tenant string) (models.Row, error) {
	r.backend.mu.RLock()
	defer r.backend.mu.RUnlock()

	row, ok := r.backend.lookup(r.cfg.Table, tenant, id)
	if !ok || row.Bool(models.FieldIsDeleted) {
		return nil, wrapOp("get", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}
	return row.Clone(), nil
}

func (r *memoryRepo) Create(ctx context.Context, rec models.Row) (models.Row, error) {
	r.backend.writeMu.Lock()
	defer r.backend.writeMu.Unlock()

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

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()
	r.backend.bucket(r.cfg.Table, tenant)[row.String(models.FieldID)] = row
	return row.Clone(), nil
}

func (r *memoryRepo) Update(ctx context.Context, patch models.Row) (models.Row, error) {
	r.backend.writeMu.Lock()
	defer r.backend.writeMu.Unlock()

	tenant := patch.String(models.FieldTenantID)
	id := patch.String(models.FieldID)

	if err := validateUpdate(ctx, r.backend, r.cfg, patch); err != nil {
		return nil, wrapOp("update", r.cfg.Table, tenant, err)
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	row, ok := r.backend.lookup(r.cfg.Table, tenant, id)
	if !ok || row.Bool(models.FieldIsDeleted) {
		return nil, wrapOp("update", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}

	for key, value := range patch {
		switch key {
		case models.FieldID, models.FieldTenantID, models.FieldCreatedAt, models.FieldCreatedBy, models.FieldIsDeleted:
			continue
		}
		row[key] = value
	}
	row[models.FieldUpdatedAt] = time.Now().UTC()
	return row.Clone(), nil
}

func (r *memoryRepo) Delete(ctx context.Context, id, tenant, actor string) error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	if err := r.backend.softDelete(r.cfg.Table, tenant, id, actor); err != nil {
		return wrapOp("delete", r.cfg.Table, tenant, err)
	}
	return nil
}

// softDelete flips the flag on a live record and, under the cascade
// policy, walks dependents transitively. Caller holds the write lock.
func (b *MemoryBackend) softDelete(table, tenant, id, actor string) error {
	row, ok := b.lookup(table, tenant, id)
	if !ok || row.Bool(models.FieldIsDeleted) {
		return &RecordNotFoundError{Table: table, ID: id}
	}

	row[models.FieldIsDeleted] = true
	row[models.FieldUpdatedAt] = time.Now().UTC()
	row[models.FieldUpdatedBy] = actor

	if b.policy != PolicyCascade {
		return nil
	}
	for _, dep := range models.DependentsOf(table) {
		for childID, child := range b.bucket(dep.Table, tenant) {
			if child.Bool(models.FieldIsDeleted) || child.String(dep.Field) != id {
				continue
			}
			if err := b.softDelete(dep.Table, tenant, childID, actor); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *memoryRepo) Restore(ctx context.Context, id, tenant, actor string) error {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	row, ok := r.backend.lookup(r.cfg.Table, tenant, id)
	if !ok || !row.Bool(models.FieldIsDeleted) {
		return wrapOp("restore", r.cfg.Table, tenant, &RecordNotFoundError{Table: r.cfg.Table, ID: id})
	}

	row[models.FieldIsDeleted] = false
	row[models.FieldUpdatedAt] = time.Now().UTC()
	row[models.FieldUpdatedBy] = actor
	return nil
}
