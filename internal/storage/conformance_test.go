package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

// runBackendConformance exercises the guarantees every adapter must provide
// regardless of backend: tenant scoping, referential integrity, duplicate
// detection, soft-delete visibility, and atomic balance deltas.
func runBackendConformance(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	seedCategory := func(t *testing.T, b Backend, tenant, id string) models.Row {
		t.Helper()
		repo, err := b.Entity(models.TableAccountCategories)
		if err != nil {
			t.Fatalf("failed to resolve category repo: %v", err)
		}
		row, err := repo.Create(ctx, models.Row{
			"id": id, "tenantid": tenant, "name": "Assets " + id, "type": "asset",
		})
		if err != nil {
			t.Fatalf("failed to seed category: %v", err)
		}
		return row
	}

	seedAccount := func(t *testing.T, b Backend, tenant, id, categoryID, balance string) models.Row {
		t.Helper()
		repo, err := b.Entity(models.TableAccounts)
		if err != nil {
			t.Fatalf("failed to resolve account repo: %v", err)
		}
		row, err := repo.Create(ctx, models.Row{
			"id": id, "tenantid": tenant, "name": "Account " + id,
			"balance": decimal.RequireFromString(balance), "currency": "USD",
			"categoryid": categoryID,
		})
		if err != nil {
			t.Fatalf("failed to seed account: %v", err)
		}
		return row
	}

	t.Run("create and get", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")
		created := seedAccount(t, b, "t1", "a1", "c1", "100")

		if created.String("id") != "a1" {
			t.Errorf("expected id a1, got %s", created.String("id"))
		}

		repo, _ := b.Entity(models.TableAccounts)
		got, err := repo.GetByID(ctx, "a1", "t1")
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		balance, err := got.Decimal("balance")
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if !balance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected balance 100, got %s", balance)
		}
		if got.String("categoryid") != "c1" {
			t.Errorf("expected categoryid c1, got %s", got.String("categoryid"))
		}
	})

	t.Run("generated id", func(t *testing.T) {
		b := newBackend(t)
		repo, _ := b.Entity(models.TableTransactionGroups)
		row, err := repo.Create(ctx, models.Row{"tenantid": "t1", "name": "Everyday"})
		if err != nil {
			t.Fatalf("failed to create group: %v", err)
		}
		if row.Empty("id") {
			t.Error("expected generated id on create")
		}
	})

	t.Run("tenant scoping", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		repo, _ := b.Entity(models.TableAccountCategories)
		if _, err := repo.GetByID(ctx, "c1", "t2"); err == nil {
			t.Error("expected cross-tenant get to fail")
		}

		rows, err := repo.GetAll(ctx, "t2")
		if err != nil {
			t.Fatalf("failed to list for other tenant: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected no records for tenant t2, got %d", len(rows))
		}
	})

	t.Run("referential integrity on create", func(t *testing.T) {
		b := newBackend(t)
		repo, _ := b.Entity(models.TableAccounts)

		_, err := repo.Create(ctx, models.Row{
			"id": "a1", "tenantid": "t1", "name": "Orphan",
			"balance": decimal.Zero, "currency": "USD", "categoryid": "nope",
		})
		var ri *ReferentialIntegrityError
		if !errors.As(err, &ri) {
			t.Fatalf("expected ReferentialIntegrityError, got %v", err)
		}
		if ri.Field != "categoryid" || ri.Value != "nope" {
			t.Errorf("expected categoryid/nope, got %s/%s", ri.Field, ri.Value)
		}
	})

	t.Run("referential integrity against soft-deleted parent", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		catRepo, _ := b.Entity(models.TableAccountCategories)
		if err := catRepo.Delete(ctx, "c1", "t1", "tester"); err != nil {
			t.Fatalf("failed to delete category: %v", err)
		}

		repo, _ := b.Entity(models.TableAccounts)
		_, err := repo.Create(ctx, models.Row{
			"id": "a1", "tenantid": "t1", "name": "Stale",
			"balance": decimal.Zero, "currency": "USD", "categoryid": "c1",
		})
		var ri *ReferentialIntegrityError
		if !errors.As(err, &ri) {
			t.Fatalf("expected ReferentialIntegrityError for deleted parent, got %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		repo, _ := b.Entity(models.TableAccountCategories)
		_, err := repo.Create(ctx, models.Row{
			"id": "c1", "tenantid": "t1", "name": "Other", "type": "asset",
		})
		var dup *DuplicateRecordError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateRecordError, got %v", err)
		}
	})

	t.Run("duplicate unique field", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		repo, _ := b.Entity(models.TableAccountCategories)
		// Same name modulo case and whitespace.
		_, err := repo.Create(ctx, models.Row{
			"id": "c2", "tenantid": "t1", "name": "  assets C1 ", "type": "asset",
		})
		var dup *DuplicateRecordError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateRecordError for normalized name, got %v", err)
		}

		// Same name under another tenant is fine.
		if _, err := repo.Create(ctx, models.Row{
			"id": "c2", "tenantid": "t2", "name": "Assets c1", "type": "asset",
		}); err != nil {
			t.Fatalf("cross-tenant name reuse should succeed: %v", err)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")
		seedAccount(t, b, "t1", "a1", "c1", "250")

		repo, _ := b.Entity(models.TableAccounts)
		updated, err := repo.Update(ctx, models.Row{
			"id": "a1", "tenantid": "t1", "name": "Renamed",
		})
		if err != nil {
			t.Fatalf("failed to update account: %v", err)
		}
		if updated.String("name") != "Renamed" {
			t.Errorf("expected name Renamed, got %s", updated.String("name"))
		}
		balance, _ := updated.Decimal("balance")
		if !balance.Equal(decimal.NewFromInt(250)) {
			t.Errorf("unsupplied balance changed: %s", balance)
		}
	})

	t.Run("soft delete and restore", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		repo, _ := b.Entity(models.TableAccountCategories)
		if err := repo.Delete(ctx, "c1", "t1", "tester"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		if _, err := repo.GetByID(ctx, "c1", "t1"); err == nil {
			t.Error("deleted record should be invisible to reads")
		}
		rows, _ := repo.GetAll(ctx, "t1")
		if len(rows) != 0 {
			t.Errorf("deleted record leaked into GetAll: %d rows", len(rows))
		}

		if err := repo.Restore(ctx, "c1", "t1", "tester"); err != nil {
			t.Fatalf("failed to restore: %v", err)
		}
		row, err := repo.GetByID(ctx, "c1", "t1")
		if err != nil {
			t.Fatalf("restored record should be visible: %v", err)
		}
		if row.String("updatedby") != "tester" {
			t.Errorf("expected restore actor stamped, got %q", row.String("updatedby"))
		}
	})

	t.Run("delete missing record", func(t *testing.T) {
		b := newBackend(t)
		repo, _ := b.Entity(models.TableAccountCategories)
		err := repo.Delete(ctx, "ghost", "t1", "tester")
		var notFound *RecordNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected RecordNotFoundError, got %v", err)
		}
	})

	t.Run("invalid currency", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")

		repo, _ := b.Entity(models.TableAccounts)
		_, err := repo.Create(ctx, models.Row{
			"id": "a1", "tenantid": "t1", "name": "Funny Money",
			"balance": decimal.Zero, "currency": "XYZ9", "categoryid": "c1",
		})
		if err == nil {
			t.Error("expected error for unknown currency code")
		}
	})

	t.Run("concurrent balance adjustments", func(t *testing.T) {
		b := newBackend(t)
		seedCategory(t, b, "t1", "c1")
		seedAccount(t, b, "t1", "a1", "c1", "0")

		const workers = 20
		delta := decimal.RequireFromString("1.5")

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.AdjustBalance(ctx, "a1", "t1", delta); err != nil {
					t.Errorf("adjust failed: %v", err)
				}
			}()
		}
		wg.Wait()

		repo, _ := b.Entity(models.TableAccounts)
		row, err := repo.GetByID(ctx, "a1", "t1")
		if err != nil {
			t.Fatalf("failed to read account: %v", err)
		}
		balance, _ := row.Decimal("balance")
		want := delta.Mul(decimal.NewFromInt(workers))
		if !balance.Equal(want) {
			t.Errorf("expected balance %s after %d adjustments, got %s", want, workers, balance)
		}
	})

	t.Run("created timestamps preserved", func(t *testing.T) {
		b := newBackend(t)
		repo, _ := b.Entity(models.TableAccountCategories)

		stamp := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
		row, err := repo.Create(ctx, models.Row{
			"id": "c1", "tenantid": "t1", "name": "Imported", "type": "asset",
			"createdat": stamp,
		})
		if err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		created, err := row.Time("createdat")
		if err != nil {
			t.Fatalf("failed to read createdat: %v", err)
		}
		if !created.Equal(stamp) {
			t.Errorf("supplied createdat not preserved: %v", created)
		}
	})
}
