package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

// BackendFactory constructs the backend for a mode. Factories for modes
// with in-process state (demo) should return the same instance on every
// call so that switching back restores the dataset left there.
type BackendFactory func(ctx context.Context) (Backend, error)

// ModeRegistry holds the single active backend and handles the atomic
// switch between modes. It is the one indirection point between callers
// and storage: repository handles resolved through it always hit the
// currently active backend and notify the cache invalidation manager on
// successful mutations.
//
// Overlapping SetMode calls block and wait rather than failing fast: the
// mutex serializes switches, so a second caller observes the first
// switch's result before its own begins.
type ModeRegistry struct {
	mu        sync.Mutex
	mode      Mode
	active    Backend
	factories map[Mode]BackendFactory
	inv       *Invalidator
	logger    *log.Logger
}

// NewModeRegistry builds a registry over the given factories and activates
// the initial mode. The model registry's rank invariant is verified here,
// once, before any engine can run: a violation is a fatal configuration
// error.
func NewModeRegistry(ctx context.Context, initial Mode, factories map[Mode]BackendFactory, inv *Invalidator, logger *log.Logger) (*ModeRegistry, error) {
	if err := models.VerifyRanks(); err != nil {
		return nil, fmt.Errorf("model configuration invalid: %w", err)
	}

	r := &ModeRegistry{
		factories: factories,
		inv:       inv,
		logger:    logger,
	}
	if err := r.SetMode(ctx, initial); err != nil {
		return nil, err
	}
	return r, nil
}

// Mode returns the currently active mode identifier.
func (r *ModeRegistry) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode switches the active backend. The requested mode is validated
// before any resource is touched. The new adapter is constructed and
// initialized before the old one is released, so a failed switch leaves
// the previously active mode untouched and no half-switched state is ever
// observable. Only after the new adapter reports ready does it become
// active and do the previous mode's cached queries get dropped.
func (r *ModeRegistry) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil && r.mode == mode {
		return nil
	}

	factory, ok := r.factories[mode]
	if !ok {
		return &InvalidModeError{Mode: string(mode)}
	}

	next, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to construct %s backend: %w", mode, err)
	}
	if err := next.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", mode, err)
	}

	if r.active != nil {
		if err := r.active.Close(); err != nil && r.logger != nil {
			r.logger.Warn("failed to release previous backend", "mode", r.mode, "err", err)
		}
	}

	r.mode = mode
	r.active = next
	r.inv.OnModeSwitch()

	if r.logger != nil {
		r.logger.Info("storage mode switched", "mode", mode)
	}
	return nil
}

// Backend returns the active backend.
func (r *ModeRegistry) Backend() Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Entity returns a repository handle for the table. The handle resolves
// the active backend on every call, so it stays valid across mode
// switches, and it notifies the invalidation manager after each
// successful mutation.
func (r *ModeRegistry) Entity(table string) (EntityRepository, error) {
	if _, err := models.Config(table); err != nil {
		return nil, wrapOp("entity", table, "", err)
	}
	return &trackedRepo{table: table, registry: r}, nil
}

// AdjustBalance applies an atomic balance delta through the active backend
// and invalidates account-derived caches.
func (r *ModeRegistry) AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error {
	if err := r.Backend().AdjustBalance(ctx, id, tenant, delta); err != nil {
		return err
	}
	r.inv.OnMutation(models.TableAccounts)
	return nil
}

// trackedRepo delegates to whichever backend is active at call time and
// reports successful mutations to the cache invalidation manager.
type trackedRepo struct {
	table    string
	registry *ModeRegistry
}

func (t *trackedRepo) resolve() (EntityRepository, error) {
	return t.registry.Backend().Entity(t.table)
}

func (t *trackedRepo) GetAll(ctx context.Context, tenant string) ([]models.Row, error) {
	repo, err := t.resolve()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx, tenant)
}

func (t *trackedRepo) GetByID(ctx context.Context, id, tenant string) (models.Row, error) {
	repo, err := t.resolve()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id, tenant)
}

func (t *trackedRepo) Create(ctx context.Context, rec models.Row) (models.Row, error) {
	repo, err := t.resolve()
	if err != nil {
		return nil, err
	}
	row, err := repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	t.registry.inv.OnMutation(t.table)
	return row, nil
}

func (t *trackedRepo) Update(ctx context.Context, patch models.Row) (models.Row, error) {
	repo, err := t.resolve()
	if err != nil {
		return nil, err
	}
	row, err := repo.Update(ctx, patch)
	if err != nil {
		return nil, err
	}
	t.registry.inv.OnMutation(t.table)
	return row, nil
}

func (t *trackedRepo) Delete(ctx context.Context, id, tenant, actor string) error {
	repo, err := t.resolve()
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id, tenant, actor); err != nil {
		return err
	}
	t.registry.inv.OnMutation(t.table)
	return nil
}

func (t *trackedRepo) Restore(ctx context.Context, id, tenant, actor string) error {
	repo, err := t.resolve()
	if err != nil {
		return err
	}
	if err := repo.Restore(ctx, id, tenant, actor); err != nil {
		return err
	}
	t.registry.inv.OnMutation(t.table)
	return nil
}
