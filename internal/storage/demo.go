package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

// SeedDemoData populates the demo backend with a small, self-consistent
// fixture dataset for the given tenant: two account categories, two
// accounts, a group with two categories, a handful of transactions, and one
// recurring template. Seeding an already-seeded tenant fails on the first
// duplicate.
func SeedDemoData(ctx context.Context, b *MemoryBackend, tenant string) error {
	now := time.Now().UTC()
	stamp := func(a *models.Audit, id string) {
		a.ID = id
		a.TenantID = tenant
		a.CreatedAt = now
		a.UpdatedAt = now
		a.CreatedBy = "demo"
	}

	assets := models.AccountCategory{Name: "Assets", Type: "asset", DisplayRank: 1}
	stamp(&assets.Audit, "demo-ac-assets")
	liabilities := models.AccountCategory{Name: "Liabilities", Type: "liability", DisplayRank: 2}
	stamp(&liabilities.Audit, "demo-ac-liabilities")

	checking := models.Account{Name: "Checking", Balance: decimal.NewFromInt(2500), Currency: "USD", CategoryID: assets.ID}
	stamp(&checking.Audit, "demo-acct-checking")
	card := models.Account{Name: "Credit Card", Balance: decimal.NewFromInt(-430), Currency: "USD", CategoryID: liabilities.ID}
	stamp(&card.Audit, "demo-acct-card")

	everyday := models.TransactionGroup{Name: "Everyday", DisplayRank: 1}
	stamp(&everyday.Audit, "demo-tg-everyday")

	groceries := models.TransactionCategory{Name: "Groceries", GroupID: everyday.ID}
	stamp(&groceries.Audit, "demo-tc-groceries")
	rent := models.TransactionCategory{Name: "Rent", GroupID: everyday.ID}
	stamp(&rent.Audit, "demo-tc-rent")

	tx1 := models.Transaction{
		Amount:      decimal.RequireFromString("-84.20"),
		Date:        now.AddDate(0, 0, -3),
		Description: "Weekly groceries",
		AccountID:   checking.ID,
		CategoryID:  groceries.ID,
	}
	stamp(&tx1.Audit, "demo-tx-1")
	tx2 := models.Transaction{
		Amount:      decimal.RequireFromString("-1200"),
		Date:        now.AddDate(0, 0, -10),
		Description: "Monthly rent",
		AccountID:   checking.ID,
		CategoryID:  rent.ID,
	}
	stamp(&tx2.Audit, "demo-tx-2")

	monthly := models.Recurring{
		AccountID:   checking.ID,
		CategoryID:  rent.ID,
		Amount:      decimal.RequireFromString("-1200"),
		Description: "Rent",
		Rule:        "monthly",
		IsActive:    true,
		NextRun:     now.AddDate(0, 1, 0),
	}
	stamp(&monthly.Audit, "demo-rec-rent")

	seeds := []struct {
		table string
		row   models.Row
	}{
		{models.TableAccountCategories, assets.Row()},
		{models.TableAccountCategories, liabilities.Row()},
		{models.TableAccounts, checking.Row()},
		{models.TableAccounts, card.Row()},
		{models.TableTransactionGroups, everyday.Row()},
		{models.TableTransactionCategories, groceries.Row()},
		{models.TableTransactionCategories, rent.Row()},
		{models.TableTransactions, tx1.Row()},
		{models.TableTransactions, tx2.Row()},
		{models.TableRecurrings, monthly.Row()},
	}

	for _, seed := range seeds {
		repo, err := b.Entity(seed.table)
		if err != nil {
			return err
		}
		if _, err := repo.Create(ctx, seed.row); err != nil {
			return fmt.Errorf("failed to seed %s: %w", seed.table, err)
		}
	}
	return nil
}
