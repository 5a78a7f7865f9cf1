package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Table names for the tracked entities. Every repository operation, export
// file, and cache key is addressed by one of these.
const (
	TableAccountCategories     = "accountcategories"
	TableAccounts              = "accounts"
	TableTransactionGroups     = "transactiongroups"
	TableTransactionCategories = "transactioncategories"
	TableTransactions          = "transactions"
	TableRecurrings            = "recurrings"
	TableConfigurations        = "configurations"
)

// Field names shared by every entity.
const (
	FieldID        = "id"
	FieldTenantID  = "tenantid"
	FieldIsDeleted = "isdeleted"
	FieldCreatedAt = "createdat"
	FieldUpdatedAt = "updatedat"
	FieldCreatedBy = "createdby"
	FieldUpdatedBy = "updatedby"
)

// Row is the record currency shared by backend adapters and the
// export/import engines: a map from field name to value.
//
// In-memory values are typed (time.Time, decimal.Decimal, bool, string);
// rows decoded from the portable text format carry strings until the import
// engine's validation phase normalizes them. The accessors below tolerate
// both shapes.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value for key rendered as a string, or "" when the key
// is absent or nil.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Empty reports whether the key is absent, nil, or an empty string.
func (r Row) Empty(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Bool returns the value for key as a bool. String values parse as the
// literal "true"; everything else is false.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// Time returns the value for key as a time.Time. String values must be
// RFC 3339; failures return the zero time with an error.
func (r Row) Time(key string) (time.Time, error) {
	switch v := r[key].(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", key, err)
		}
		return t, nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("field %s: not a timestamp: %v", key, v)
	}
}

// Decimal returns the value for key as a decimal. Absent and empty values
// are zero; unparseable values return an error.
func (r Row) Decimal(key string) (decimal.Decimal, error) {
	switch v := r[key].(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("field %s: not a number: %v", key, v)
	}
}
