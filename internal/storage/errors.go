package storage

import "fmt"

// StorageError is the base error kind for repository operations. It carries
// the operation, table, and tenant so failures surface with enough context
// to be actionable, and wraps the underlying cause.
type StorageError struct {
	Op     string
	Table  string
	Tenant string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Tenant != "" {
		return fmt.Sprintf("storage: %s %s (tenant %s): %v", e.Op, e.Table, e.Tenant, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ReferentialIntegrityError reports a foreign-key field whose value does not
// reference an existing, same-tenant, non-deleted record.
type ReferentialIntegrityError struct {
	Table string
	Field string
	Value string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("referential integrity violation: %s.%s references missing record %q", e.Table, e.Field, e.Value)
}

// DuplicateRecordError reports a create whose identifier or declared unique
// field already exists for the tenant.
type DuplicateRecordError struct {
	Table string
	Field string
	Value string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate record: %s.%s = %q already exists", e.Table, e.Field, e.Value)
}

// RecordNotFoundError reports a lookup that matched no live record.
type RecordNotFoundError struct {
	Table string
	ID    string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s/%s", e.Table, e.ID)
}

// NetworkError reports a transient failure talking to the networked
// backend: transport errors, timeouts, and 5xx responses.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InvalidModeError reports a mode switch request outside the {cloud, local,
// demo} enumeration.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid storage mode: %q", e.Mode)
}

func wrapOp(op, table, tenant string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Table: table, Tenant: tenant, Err: err}
}
