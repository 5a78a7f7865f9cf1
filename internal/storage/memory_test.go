package storage

import (
	"context"
	"testing"

	"github.com/desertthunder/finx/internal/models"
)

func TestMemoryBackendConformance(t *testing.T) {
	runBackendConformance(t, func(t *testing.T) Backend {
		return NewMemoryBackend(PolicyOrphan)
	})
}

func TestMemoryBackendCascadeDelete(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(PolicyCascade)

	catRepo, _ := b.Entity(models.TableAccountCategories)
	if _, err := catRepo.Create(ctx, models.Row{
		"id": "c1", "tenantid": "t1", "name": "Assets", "type": "asset",
	}); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	acctRepo, _ := b.Entity(models.TableAccounts)
	if _, err := acctRepo.Create(ctx, models.Row{
		"id": "a1", "tenantid": "t1", "name": "Checking",
		"balance": "0", "currency": "USD", "categoryid": "c1",
	}); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	if err := catRepo.Delete(ctx, "c1", "t1", "tester"); err != nil {
		t.Fatalf("failed to delete category: %v", err)
	}

	if _, err := acctRepo.GetByID(ctx, "a1", "t1"); err == nil {
		t.Error("cascade policy should have soft-deleted the dependent account")
	}
}

func TestMemoryBackendOrphanDelete(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(PolicyOrphan)

	catRepo, _ := b.Entity(models.TableAccountCategories)
	if _, err := catRepo.Create(ctx, models.Row{
		"id": "c1", "tenantid": "t1", "name": "Assets", "type": "asset",
	}); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	acctRepo, _ := b.Entity(models.TableAccounts)
	if _, err := acctRepo.Create(ctx, models.Row{
		"id": "a1", "tenantid": "t1", "name": "Checking",
		"balance": "0", "currency": "USD", "categoryid": "c1",
	}); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	if err := catRepo.Delete(ctx, "c1", "t1", "tester"); err != nil {
		t.Fatalf("failed to delete category: %v", err)
	}

	row, err := acctRepo.GetByID(ctx, "a1", "t1")
	if err != nil {
		t.Fatalf("orphan policy should leave the account live: %v", err)
	}
	if row.String("categoryid") != "c1" {
		t.Errorf("orphaned reference should be left in place, got %q", row.String("categoryid"))
	}
}

func TestMemoryBackendSurvivesClose(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(PolicyOrphan)

	repo, _ := b.Entity(models.TableTransactionGroups)
	if _, err := repo.Create(ctx, models.Row{"id": "g1", "tenantid": "t1", "name": "Everyday"}); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := b.Init(ctx); err != nil {
		t.Fatalf("reinit failed: %v", err)
	}

	if _, err := repo.GetByID(ctx, "g1", "t1"); err != nil {
		t.Errorf("data should survive close and reinit: %v", err)
	}
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(PolicyOrphan)

	if err := SeedDemoData(ctx, b, "demo"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	counts := map[string]int{
		models.TableAccountCategories:    2,
		models.TableAccounts:             2,
		models.TableTransactionGroups:    1,
		models.TableTransactionCategories: 2,
		models.TableTransactions:         2,
		models.TableRecurrings:           1,
	}
	for table, want := range counts {
		repo, err := b.Entity(table)
		if err != nil {
			t.Fatalf("failed to resolve %s: %v", table, err)
		}
		rows, err := repo.GetAll(ctx, "demo")
		if err != nil {
			t.Fatalf("failed to list %s: %v", table, err)
		}
		if len(rows) != want {
			t.Errorf("expected %d %s rows, got %d", want, table, len(rows))
		}
	}
}
