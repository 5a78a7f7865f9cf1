package models

import (
	"fmt"
	"sort"
)

// ModelConfig describes one entity: its position in the dependency order,
// its foreign keys, and the field sets that drive validation and the
// portable export format.
type ModelConfig struct {
	Table       string
	DisplayName string

	// Rank is the dependency rank: parents carry a lower rank than every
	// entity that references them. Both engines walk entities in ascending
	// rank and rely on this holding.
	Rank int

	// Dependencies lists the tables this entity declares foreign keys into.
	Dependencies []string

	// ForeignKeys maps a field name to the table it references.
	ForeignKeys map[string]string

	// Fields is the canonical field order for the entity. Export headers,
	// SQL column lists, and scan conversions all follow it.
	Fields []string

	RequiredFields []string
	UniqueFields   []string
	DateFields     []string
	NumericFields  []string
	BoolFields     []string

	// IgnoredFields are dropped in both directions. IgnoredExportFields and
	// IgnoredImportFields apply to one direction only. AllowedFields, when
	// non-empty, is an allow-list applied after the ignore lists.
	IgnoredFields       []string
	IgnoredExportFields []string
	IgnoredImportFields []string
	AllowedFields       []string
}

// Dependent identifies a child entity and the foreign-key field it uses to
// reference the parent.
type Dependent struct {
	Table string
	Field string
}

var registry = map[string]ModelConfig{
	TableAccountCategories: {
		Table:               TableAccountCategories,
		DisplayName:         "Account Categories",
		Rank:                1,
		Fields:              []string{FieldID, FieldTenantID, "name", "type", "displayrank", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		RequiredFields:      []string{"name"},
		UniqueFields:        []string{"name"},
		DateFields:          []string{FieldCreatedAt, FieldUpdatedAt},
		NumericFields:       []string{"displayrank"},
		BoolFields:          []string{FieldIsDeleted},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted},
	},
	TableTransactionGroups: {
		Table:               TableTransactionGroups,
		DisplayName:         "Transaction Groups",
		Rank:                2,
		Fields:              []string{FieldID, FieldTenantID, "name", "displayrank", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		RequiredFields:      []string{"name"},
		UniqueFields:        []string{"name"},
		DateFields:          []string{FieldCreatedAt, FieldUpdatedAt},
		NumericFields:       []string{"displayrank"},
		BoolFields:          []string{FieldIsDeleted},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted},
	},
	TableAccounts: {
		Table:               TableAccounts,
		DisplayName:         "Accounts",
		Rank:                3,
		Fields:              []string{FieldID, FieldTenantID, "name", "balance", "currency", "categoryid", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		Dependencies:        []string{TableAccountCategories},
		ForeignKeys:         map[string]string{"categoryid": TableAccountCategories},
		RequiredFields:      []string{"name", "categoryid"},
		UniqueFields:        []string{"name"},
		DateFields:          []string{FieldCreatedAt, FieldUpdatedAt},
		NumericFields:       []string{"balance"},
		BoolFields:          []string{FieldIsDeleted},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted},
	},
	TableTransactionCategories: {
		Table:               TableTransactionCategories,
		DisplayName:         "Transaction Categories",
		Rank:                4,
		Fields:              []string{FieldID, FieldTenantID, "name", "groupid", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		Dependencies:        []string{TableTransactionGroups},
		ForeignKeys:         map[string]string{"groupid": TableTransactionGroups},
		RequiredFields:      []string{"name", "groupid"},
		UniqueFields:        []string{"name"},
		DateFields:          []string{FieldCreatedAt, FieldUpdatedAt},
		BoolFields:          []string{FieldIsDeleted},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted},
	},
	TableTransactions: {
		Table:        TableTransactions,
		DisplayName:  "Transactions",
		Rank:         5,
		Fields:       []string{FieldID, FieldTenantID, "amount", "date", "description", "accountid", "categoryid", "transferid", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		Dependencies: []string{TableAccounts, TableTransactionCategories},
		ForeignKeys: map[string]string{
			"accountid":  TableAccounts,
			"categoryid": TableTransactionCategories,
			// transferid points at the paired leg of a transfer. It is not a
			// declared dependency: both legs live in this table and either
			// may be written first during an import.
			"transferid": TableTransactions,
		},
		RequiredFields:      []string{"amount", "date", "accountid", "categoryid"},
		DateFields:          []string{"date", FieldCreatedAt, FieldUpdatedAt},
		NumericFields:       []string{"amount"},
		BoolFields:          []string{FieldIsDeleted},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted},
	},
	TableRecurrings: {
		Table:        TableRecurrings,
		DisplayName:  "Recurring Transactions",
		Rank:         6,
		Fields:       []string{FieldID, FieldTenantID, "accountid", "categoryid", "amount", "description", "rule", "isactive", "failurecount", "nextrun", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		Dependencies: []string{TableAccounts, TableTransactionCategories},
		ForeignKeys: map[string]string{
			"accountid":  TableAccounts,
			"categoryid": TableTransactionCategories,
		},
		RequiredFields:      []string{"accountid", "categoryid", "amount", "rule"},
		DateFields:          []string{"nextrun", FieldCreatedAt, FieldUpdatedAt},
		NumericFields:       []string{"amount", "failurecount"},
		BoolFields:          []string{FieldIsDeleted, "isactive"},
		IgnoredFields:       []string{FieldTenantID},
		IgnoredExportFields: []string{FieldIsDeleted},
		IgnoredImportFields: []string{FieldIsDeleted, "failurecount"},
	},
	TableConfigurations: {
		Table:          TableConfigurations,
		DisplayName:    "Configuration",
		Rank:           7,
		Fields:         []string{FieldID, FieldTenantID, "table", "type", "key", "value", FieldIsDeleted, FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy},
		RequiredFields: []string{"table", "type", "key"},
		UniqueFields:   []string{"table", "type", "key"},
		DateFields:     []string{FieldCreatedAt, FieldUpdatedAt},
		BoolFields:     []string{FieldIsDeleted},
		IgnoredFields:  []string{FieldTenantID},
		AllowedFields: []string{
			FieldID, "table", "type", "key", "value",
			FieldCreatedAt, FieldUpdatedAt,
		},
	},
}

// Config returns the registry entry for a table.
func Config(table string) (ModelConfig, error) {
	cfg, ok := registry[table]
	if !ok {
		return ModelConfig{}, fmt.Errorf("unknown entity type: %s", table)
	}
	return cfg, nil
}

// Tables returns every registered table name, unordered.
func Tables() []string {
	out := make([]string, 0, len(registry))
	for table := range registry {
		out = append(out, table)
	}
	return out
}

// ModelsInOrder returns every registry entry sorted ascending by rank.
func ModelsInOrder() []ModelConfig {
	out := make([]ModelConfig, 0, len(registry))
	for _, cfg := range registry {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// DependenciesOf returns the declared dependency tables for an entity.
func DependenciesOf(table string) []string {
	return registry[table].Dependencies
}

// DependentsOf returns the entities that declare table as a dependency,
// along with the foreign-key field each uses. Used by the cascade delete
// path and the cache invalidation fan-out.
func DependentsOf(table string) []Dependent {
	var out []Dependent
	for _, cfg := range ModelsInOrder() {
		for field, target := range cfg.ForeignKeys {
			if target == table && cfg.Table != table {
				out = append(out, Dependent{Table: cfg.Table, Field: field})
			}
		}
	}
	return out
}

// ValidateDependenciesSatisfied reports whether every declared dependency of
// the entity is present in the caller-supplied set.
func ValidateDependenciesSatisfied(table string, satisfied map[string]bool) bool {
	for _, dep := range registry[table].Dependencies {
		if !satisfied[dep] {
			return false
		}
	}
	return true
}

// VerifyRanks checks the load-bearing ordering invariant: every dependency
// of an entity must carry a strictly lower rank than the entity itself.
// Both engines assume this holds; a violation is a fatal configuration
// error and must be checked once at process start.
func VerifyRanks() error {
	for _, cfg := range registry {
		for _, dep := range cfg.Dependencies {
			parent, ok := registry[dep]
			if !ok {
				return fmt.Errorf("entity %s depends on unregistered entity %s", cfg.Table, dep)
			}
			if parent.Rank >= cfg.Rank {
				return fmt.Errorf("entity %s (rank %d) depends on %s (rank %d): dependencies must rank lower",
					cfg.Table, cfg.Rank, dep, parent.Rank)
			}
		}
	}
	return nil
}

// UniqueKeyFields returns the fields forming the duplicate-detection tuple:
// the declared unique set, or the identifier when none is declared.
func UniqueKeyFields(cfg ModelConfig) []string {
	if len(cfg.UniqueFields) > 0 {
		return cfg.UniqueFields
	}
	return []string{FieldID}
}
