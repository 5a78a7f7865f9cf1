// Package storage implements the swappable persistence layer for the finx
// core: one repository contract per entity, three interchangeable backend
// adapters (cloud, local, demo), a mode registry that holds the single
// active backend, and the cache invalidation fan-out.
//
// Every adapter provides the same guarantees regardless of backend: tenant
// scoping on every operation, foreign-key validation before any write,
// duplicate detection on create, and soft-delete visibility rules. The
// export/import engines in internal/tasks sit above these contracts and
// never bypass them.
package storage

import (
	"context"

	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

// Mode identifies one of the interchangeable storage backends.
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeLocal Mode = "local"
	ModeDemo  Mode = "demo"
)

// ParseMode validates a mode string against the fixed enumeration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCloud, ModeLocal, ModeDemo:
		return Mode(s), nil
	default:
		return "", &InvalidModeError{Mode: s}
	}
}

// CascadePolicy controls what happens to dependent records when their
// parent is soft-deleted. The source behavior is ambiguous, so the policy
// is explicit configuration rather than hard-coded.
type CascadePolicy string

const (
	// PolicyOrphan leaves dependents in place referencing the deleted
	// parent. Reads of the parent fail until it is restored.
	PolicyOrphan CascadePolicy = "orphan"
	// PolicyCascade soft-deletes dependents transitively along with the
	// parent. Restore does not revive cascaded dependents.
	PolicyCascade CascadePolicy = "cascade"
)

// ParseCascadePolicy validates a cascade policy string.
func ParseCascadePolicy(s string) (CascadePolicy, error) {
	switch CascadePolicy(s) {
	case PolicyOrphan, PolicyCascade:
		return CascadePolicy(s), nil
	case "":
		return PolicyOrphan, nil
	default:
		return "", &StorageError{Op: "configure", Err: &InvalidModeError{Mode: s}}
	}
}

// EntityRepository is the uniform per-entity contract every backend
// implements. All operations are tenant-scoped; reads exclude soft-deleted
// records except through Restore.
type EntityRepository interface {
	// GetAll returns every live record for the tenant.
	GetAll(ctx context.Context, tenant string) ([]models.Row, error)

	// GetByID returns a single live record, or RecordNotFoundError.
	GetByID(ctx context.Context, id, tenant string) (models.Row, error)

	// Create validates foreign keys and uniqueness, stamps identity and
	// audit fields, and writes the record. The stored row is returned.
	Create(ctx context.Context, rec models.Row) (models.Row, error)

	// Update applies a partial record: only supplied fields change. The
	// patch must carry id and tenantid. Foreign-key fields present in the
	// patch are validated before the write.
	Update(ctx context.Context, patch models.Row) (models.Row, error)

	// Delete flips the soft-delete flag. Dependents are handled per the
	// backend's cascade policy.
	Delete(ctx context.Context, id, tenant, actor string) error

	// Restore flips the soft-delete flag back. It is the only path that
	// targets deleted records.
	Restore(ctx context.Context, id, tenant, actor string) error
}

// Backend is one concrete storage implementation behind the repository
// contracts. Exactly one backend is active at a time, selected through the
// ModeRegistry.
type Backend interface {
	// Name returns the mode identifier this backend serves.
	Name() string

	// Entity returns the repository for a registered table.
	Entity(table string) (EntityRepository, error)

	// AdjustBalance applies a balance delta to an account as a single
	// indivisible operation, serialized per account id. It is independent
	// of Update: concurrent deltas never lose an application.
	AdjustBalance(ctx context.Context, id, tenant string, delta decimal.Decimal) error

	// Init prepares the backend's resources. It must be safe to call on a
	// backend that was previously closed; reopening a mode restores the
	// dataset left there.
	Init(ctx context.Context) error

	// Close releases the backend's resources without discarding its data.
	Close() error
}
