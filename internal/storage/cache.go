package storage

import "github.com/desertthunder/finx/internal/models"

// QueryCache is the optional cache layer attached by the UI host. The
// invalidation manager drops keys through it; the core never reads it.
type QueryCache interface {
	// Drop removes the cached queries for the given entity tables.
	Drop(tables ...string)
	// DropAll removes every cached entity query.
	DropAll()
}

// Invalidator keeps cached reads consistent with mutations and mode
// switches. It holds no state beyond the static fan-out table mapping a
// mutated entity to every entity whose cached queries become stale. All
// methods are safe no-ops when no cache layer is attached.
type Invalidator struct {
	cache  QueryCache
	fanout map[string][]string
}

// NewInvalidator builds the manager with its static fan-out table: a
// mutation invalidates the entity's own queries and its dependents'
// queries, plus the balance aggregate edges (transactions feed account
// balances, recurrings feed transactions).
func NewInvalidator(cache QueryCache) *Invalidator {
	fanout := make(map[string][]string)
	for _, cfg := range models.ModelsInOrder() {
		tables := []string{cfg.Table}
		for _, dep := range models.DependentsOf(cfg.Table) {
			tables = append(tables, dep.Table)
		}
		fanout[cfg.Table] = tables
	}

	// Balance aggregate edges: a transaction or recurring mutation changes
	// what an account query reports.
	fanout[models.TableTransactions] = append(fanout[models.TableTransactions], models.TableAccounts)
	fanout[models.TableRecurrings] = append(fanout[models.TableRecurrings], models.TableTransactions)

	return &Invalidator{cache: cache, fanout: fanout}
}

// OnMutation drops the cached queries made stale by a successful
// create/update/delete/restore on the table.
func (inv *Invalidator) OnMutation(table string) {
	if inv == nil || inv.cache == nil {
		return
	}
	if tables, ok := inv.fanout[table]; ok {
		inv.cache.Drop(tables...)
		return
	}
	inv.cache.Drop(table)
}

// OnModeSwitch drops every cached entity query. Cached data from the
// previous mode must never leak into the new mode's view.
func (inv *Invalidator) OnModeSwitch() {
	if inv == nil || inv.cache == nil {
		return
	}
	inv.cache.DropAll()
}
