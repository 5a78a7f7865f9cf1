package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/desertthunder/finx/internal/storage"
)

// RecurringResult reports a schedule run.
type RecurringResult struct {
	Materialized int           // Transactions created
	Failed       int           // Schedules whose materialization failed
	Errors       []EntityError // One entry per failed schedule
}

// RecurringEngine materializes due recurring schedules into transactions
// and applies their amounts to account balances. Each schedule advances
// its next-run date per its rule; a schedule that fails keeps its date and
// increments its failure count so the next run retries it.
type RecurringEngine struct {
	store Store
	now   func() time.Time
}

// NewRecurringEngine creates a schedule runner over the given store.
func NewRecurringEngine(store Store) *RecurringEngine {
	return &RecurringEngine{store: store, now: time.Now}
}

// Run materializes every active schedule due at or before now. A schedule
// that is multiple periods behind catches up: one transaction per missed
// period, dated at that period's due date.
func (e *RecurringEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, tenant, actor string) (*RecurringResult, error) {
	recRepo, err := e.store.Entity(models.TableRecurrings)
	if err != nil {
		return nil, err
	}
	txRepo, err := e.store.Entity(models.TableTransactions)
	if err != nil {
		return nil, err
	}

	schedules, err := recRepo.GetAll(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	result := &RecurringResult{}
	now := e.now().UTC()

	for i, sched := range schedules {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !sched.Bool("isactive") {
			continue
		}
		nextRun, err := sched.Time("nextrun")
		if err != nil || nextRun.IsZero() || nextRun.After(now) {
			continue
		}

		sendProgress(progress, recurringUpdate(i+1, len(schedules), sched.String("description")))

		created, err := e.materialize(ctx, txRepo, tenant, actor, sched, now)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{Table: models.TableRecurrings, Err: err})
			e.recordFailure(ctx, recRepo, tenant, actor, sched)
			continue
		}
		result.Materialized += created
	}
	return result, nil
}

// materialize creates one transaction per due period and advances the
// schedule past them. The balance delta goes through AdjustBalance so it
// composes with concurrent writers.
func (e *RecurringEngine) materialize(ctx context.Context, txRepo storage.EntityRepository, tenant, actor string, sched models.Row, now time.Time) (int, error) {
	amount, err := sched.Decimal("amount")
	if err != nil {
		return 0, fmt.Errorf("schedule %s: bad amount: %w", sched.String("id"), err)
	}
	due, _ := sched.Time("nextrun")
	accountID := sched.String("accountid")

	created := 0
	// Bounded catch-up: a schedule more than a decade behind is treated
	// as misconfigured rather than replayed.
	for !due.After(now) && created < 4000 {
		if _, err := txRepo.Create(ctx, models.Row{
			"tenantid":    tenant,
			"accountid":   accountID,
			"categoryid":  sched.String("categoryid"),
			"amount":      amount,
			"date":        due,
			"description": sched.String("description"),
			"createdby":   actor,
		}); err != nil {
			return created, fmt.Errorf("schedule %s: %w", sched.String("id"), err)
		}
		if err := e.store.AdjustBalance(ctx, accountID, tenant, amount); err != nil {
			return created, fmt.Errorf("schedule %s: balance: %w", sched.String("id"), err)
		}
		created++

		due, err = AdvanceRule(sched.String("rule"), due)
		if err != nil {
			return created, fmt.Errorf("schedule %s: %w", sched.String("id"), err)
		}
	}

	recRepo, err := e.store.Entity(models.TableRecurrings)
	if err != nil {
		return created, err
	}
	if _, err := recRepo.Update(ctx, models.Row{
		"id": sched.String("id"), "tenantid": tenant,
		"nextrun": due, "failurecount": 0, "updatedby": actor,
	}); err != nil {
		return created, fmt.Errorf("schedule %s: failed to advance: %w", sched.String("id"), err)
	}
	return created, nil
}

func (e *RecurringEngine) recordFailure(ctx context.Context, recRepo storage.EntityRepository, tenant, actor string, sched models.Row) {
	count, err := sched.Decimal("failurecount")
	next := int64(1)
	if err == nil {
		next = count.IntPart() + 1
	}
	// Failure bookkeeping must not mask the materialization error.
	recRepo.Update(ctx, models.Row{
		"id": sched.String("id"), "tenantid": tenant,
		"failurecount": next, "updatedby": actor,
	})
}

// AdvanceRule returns the due date one period after from. Monthly and
// yearly rules normalize per the calendar, so advancing Jan 31 by a month
// rolls into early March rather than a phantom Feb 31.
func AdvanceRule(rule string, from time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "daily":
		return from.AddDate(0, 0, 1), nil
	case "weekly":
		return from.AddDate(0, 0, 7), nil
	case "monthly":
		return from.AddDate(0, 1, 0), nil
	case "yearly":
		return from.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown schedule rule %q", rule)
	}
}
