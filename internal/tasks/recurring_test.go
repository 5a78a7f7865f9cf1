package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/storage"
	"github.com/shopspring/decimal"
)

func seedSchedule(t *testing.T, b *storage.MemoryBackend, sched models.Row) {
	t.Helper()
	ctx := context.Background()

	fixtures := map[string]models.Row{
		models.TableAccountCategories:     {"id": "c1", "tenantid": testTenant, "name": "Assets", "type": "asset"},
		models.TableAccounts:              {"id": "a1", "tenantid": testTenant, "name": "Checking", "balance": "100", "currency": "USD", "categoryid": "c1"},
		models.TableTransactionGroups:     {"id": "g1", "tenantid": testTenant, "name": "Everyday"},
		models.TableTransactionCategories: {"id": "tc1", "tenantid": testTenant, "name": "Rent", "groupid": "g1"},
	}
	for _, cfg := range models.ModelsInOrder() {
		row, ok := fixtures[cfg.Table]
		if !ok {
			continue
		}
		repo, _ := b.Entity(cfg.Table)
		if _, err := repo.Create(ctx, row); err != nil {
			t.Fatalf("failed to seed %s: %v", cfg.Table, err)
		}
	}

	repo, _ := b.Entity(models.TableRecurrings)
	if _, err := repo.Create(ctx, sched); err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}
}

func TestRecurringEngineCatchUp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	b := storage.NewMemoryBackend(storage.PolicyOrphan)
	seedSchedule(t, b, models.Row{
		"id": "r1", "tenantid": testTenant,
		"accountid": "a1", "categoryid": "tc1",
		"amount": decimal.RequireFromString("-10"), "description": "Gym",
		"rule": "daily", "isactive": true,
		"nextrun": now.Add(-72 * time.Hour),
	})

	engine := NewRecurringEngine(b)
	engine.now = func() time.Time { return now }

	result, err := engine.Run(ctx, nil, testTenant, "scheduler")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Failed != 0 {
		t.Fatalf("expected no failures, got %v", result.Errors)
	}
	if result.Materialized != 4 {
		t.Errorf("expected 4 catch-up transactions, got %d", result.Materialized)
	}

	txRepo, _ := b.Entity(models.TableTransactions)
	rows, _ := txRepo.GetAll(ctx, testTenant)
	if len(rows) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(rows))
	}

	acctRepo, _ := b.Entity(models.TableAccounts)
	acct, _ := acctRepo.GetByID(ctx, "a1", testTenant)
	balance, _ := acct.Decimal("balance")
	if !balance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected balance 60 after four -10 runs, got %s", balance)
	}

	recRepo, _ := b.Entity(models.TableRecurrings)
	sched, _ := recRepo.GetByID(ctx, "r1", testTenant)
	next, err := sched.Time("nextrun")
	if err != nil {
		t.Fatalf("failed to read nextrun: %v", err)
	}
	if !next.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expected nextrun advanced past now, got %v", next)
	}
}

func TestRecurringEngineSkipsInactiveAndFuture(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	b := storage.NewMemoryBackend(storage.PolicyOrphan)
	seedSchedule(t, b, models.Row{
		"id": "r1", "tenantid": testTenant,
		"accountid": "a1", "categoryid": "tc1",
		"amount": decimal.RequireFromString("-10"),
		"rule":   "daily", "isactive": false,
		"nextrun": now.Add(-24 * time.Hour),
	})
	recRepo, _ := b.Entity(models.TableRecurrings)
	if _, err := recRepo.Create(ctx, models.Row{
		"id": "r2", "tenantid": testTenant,
		"accountid": "a1", "categoryid": "tc1",
		"amount": decimal.RequireFromString("-10"),
		"rule":   "daily", "isactive": true,
		"nextrun": now.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed future schedule: %v", err)
	}

	engine := NewRecurringEngine(b)
	engine.now = func() time.Time { return now }

	result, err := engine.Run(ctx, nil, testTenant, "scheduler")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Materialized != 0 {
		t.Errorf("inactive and future schedules must not materialize, got %d", result.Materialized)
	}
}

func TestRecurringEngineFailureCount(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	b := storage.NewMemoryBackend(storage.PolicyOrphan)
	seedSchedule(t, b, models.Row{
		"id": "r1", "tenantid": testTenant,
		"accountid": "a1", "categoryid": "tc1",
		"amount": decimal.RequireFromString("-10"),
		"rule":   "fortnightly", "isactive": true,
		"nextrun": now.Add(-24 * time.Hour),
	})

	engine := NewRecurringEngine(b)
	engine.now = func() time.Time { return now }

	result, err := engine.Run(ctx, nil, testTenant, "scheduler")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Failed != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected one failed schedule, got %+v", result)
	}

	recRepo, _ := b.Entity(models.TableRecurrings)
	sched, _ := recRepo.GetByID(ctx, "r1", testTenant)
	count, err := sched.Decimal("failurecount")
	if err != nil || count.IntPart() != 1 {
		t.Errorf("expected failurecount 1, got %v (%v)", sched["failurecount"], err)
	}
}

func TestAdvanceRule(t *testing.T) {
	from := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		rule string
		want time.Time
	}{
		{"daily", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"weekly", time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)},
		{"Monthly", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
		{"yearly", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.rule, func(t *testing.T) {
			got, err := AdvanceRule(tc.rule, from)
			if err != nil {
				t.Fatalf("advance failed: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if _, err := AdvanceRule("hourly", from); err == nil {
		t.Error("expected error for unknown rule")
	}
}
