package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/shared"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
)

// AccountList prints the tenant's accounts with balances.
func (r *Runner) AccountList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.registry.Entity(models.TableAccounts)
	if err != nil {
		return err
	}
	rows, err := repo.GetAll(ctx, r.tenant(cmd))
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		return r.writePlain("No accounts found.\n")
	}
	r.writePlainHeader(fmt.Sprintf("Accounts (%d)", len(rows)))
	for _, row := range rows {
		balance, err := row.Decimal("balance")
		if err != nil {
			return fmt.Errorf("account %s has a bad balance: %w", row.String("id"), err)
		}
		r.writePlain("%-36s  %-24s  %s %s\n",
			row.String("id"),
			row.String("name"),
			balance.StringFixed(2),
			row.String("currency"),
		)
	}
	return nil
}

// AccountCreate creates an account under the tenant.
func (r *Runner) AccountCreate(ctx context.Context, cmd *cli.Command) error {
	balance, err := decimal.NewFromString(cmd.String("balance"))
	if err != nil {
		return fmt.Errorf("%w: balance %q is not a number", shared.ErrInvalidFlag, cmd.String("balance"))
	}

	repo, err := r.registry.Entity(models.TableAccounts)
	if err != nil {
		return err
	}
	created, err := repo.Create(ctx, models.Row{
		"tenantid":   r.tenant(cmd),
		"name":       cmd.String("name"),
		"categoryid": cmd.String("category"),
		"currency":   cmd.String("currency"),
		"balance":    balance,
		"createdby":  "cli",
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.writePlain("Created account %s (%s)\n", created.String("name"), created.String("id"))
	return nil
}
