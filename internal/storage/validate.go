package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/desertthunder/finx/internal/models"
)

// Normalize canonicalizes a unique-field value for duplicate comparison:
// surrounding whitespace is trimmed and case is folded.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UniqueKey builds the normalized duplicate-detection tuple for a record.
func UniqueKey(cfg models.ModelConfig, rec models.Row) string {
	parts := make([]string, 0, len(cfg.UniqueFields)+1)
	for _, field := range models.UniqueKeyFields(cfg) {
		parts = append(parts, Normalize(rec.String(field)))
	}
	return strings.Join(parts, "\x1f")
}

// validateCreate enforces the write-time guarantees shared by every
// backend: required fields, foreign-key references, uniqueness, and
// currency codes. The backend passes itself in so reference checks go
// through its own repositories.
func validateCreate(ctx context.Context, b Backend, cfg models.ModelConfig, rec models.Row) error {
	tenant := rec.String(models.FieldTenantID)

	for _, field := range cfg.RequiredFields {
		if rec.Empty(field) {
			return fmt.Errorf("required field %s is empty", field)
		}
	}

	if err := validateReferences(ctx, b, cfg, rec, tenant); err != nil {
		return err
	}
	if err := validateCurrency(cfg, rec); err != nil {
		return err
	}

	repo, err := b.Entity(cfg.Table)
	if err != nil {
		return err
	}

	if id := rec.String(models.FieldID); id != "" {
		if _, err := repo.GetByID(ctx, id, tenant); err == nil {
			return &DuplicateRecordError{Table: cfg.Table, Field: models.FieldID, Value: id}
		}
	}

	if len(cfg.UniqueFields) == 0 {
		return nil
	}

	existing, err := repo.GetAll(ctx, tenant)
	if err != nil {
		return err
	}
	key := UniqueKey(cfg, rec)
	for _, other := range existing {
		if UniqueKey(cfg, other) == key {
			return &DuplicateRecordError{
				Table: cfg.Table,
				Field: strings.Join(cfg.UniqueFields, ","),
				Value: rec.String(cfg.UniqueFields[0]),
			}
		}
	}
	return nil
}

// validateUpdate checks only the fields supplied by the patch.
func validateUpdate(ctx context.Context, b Backend, cfg models.ModelConfig, patch models.Row) error {
	tenant := patch.String(models.FieldTenantID)
	if err := validateReferences(ctx, b, cfg, patch, tenant); err != nil {
		return err
	}
	return validateCurrency(cfg, patch)
}

// validateReferences checks every foreign-key field present and non-empty
// in the record against the referenced entity's repository. A reference to
// a missing, soft-deleted, or cross-tenant record fails with
// ReferentialIntegrityError before anything is written.
func validateReferences(ctx context.Context, b Backend, cfg models.ModelConfig, rec models.Row, tenant string) error {
	for field, target := range cfg.ForeignKeys {
		if rec.Empty(field) {
			continue
		}
		// Self-referencing fields pair records within one table (transfer
		// legs). Either side may be written first, so the link is not
		// checkable at write time.
		if target == cfg.Table {
			continue
		}
		value := rec.String(field)

		repo, err := b.Entity(target)
		if err != nil {
			return err
		}
		if _, err := repo.GetByID(ctx, value, tenant); err != nil {
			var notFound *RecordNotFoundError
			if errors.As(err, &notFound) {
				return &ReferentialIntegrityError{Table: cfg.Table, Field: field, Value: value}
			}
			return err
		}
	}
	return nil
}

// validateCurrency rejects account currency codes that are not ISO 4217.
func validateCurrency(cfg models.ModelConfig, rec models.Row) error {
	if cfg.Table != models.TableAccounts || rec.Empty("currency") {
		return nil
	}
	code := strings.ToUpper(rec.String("currency"))
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", rec.String("currency"))
	}
	return nil
}
