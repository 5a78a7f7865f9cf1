package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Audit carries the fields shared by every entity: identity, tenant
// partition, soft-delete flag, and audit stamps.
type Audit struct {
	ID        string
	TenantID  string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

func (a Audit) auditRow() Row {
	return Row{
		FieldID:        a.ID,
		FieldTenantID:  a.TenantID,
		FieldIsDeleted: a.IsDeleted,
		FieldCreatedAt: a.CreatedAt,
		FieldUpdatedAt: a.UpdatedAt,
		FieldCreatedBy: a.CreatedBy,
		FieldUpdatedBy: a.UpdatedBy,
	}
}

func auditFromRow(r Row) (Audit, error) {
	createdAt, err := r.Time(FieldCreatedAt)
	if err != nil {
		return Audit{}, err
	}
	updatedAt, err := r.Time(FieldUpdatedAt)
	if err != nil {
		return Audit{}, err
	}
	return Audit{
		ID:        r.String(FieldID),
		TenantID:  r.String(FieldTenantID),
		IsDeleted: r.Bool(FieldIsDeleted),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		CreatedBy: r.String(FieldCreatedBy),
		UpdatedBy: r.String(FieldUpdatedBy),
	}, nil
}

// AccountCategory classifies accounts (asset-like vs liability-like).
type AccountCategory struct {
	Audit
	Name        string
	Type        string
	DisplayRank int
}

func (c AccountCategory) Row() Row {
	r := c.auditRow()
	r["name"] = c.Name
	r["type"] = c.Type
	r["displayrank"] = c.DisplayRank
	return r
}

func AccountCategoryFromRow(r Row) (*AccountCategory, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	rank, err := r.Decimal("displayrank")
	if err != nil {
		return nil, err
	}
	return &AccountCategory{
		Audit:       audit,
		Name:        r.String("name"),
		Type:        r.String("type"),
		DisplayRank: int(rank.IntPart()),
	}, nil
}

// Account is a balance-bearing account owned by an AccountCategory.
type Account struct {
	Audit
	Name       string
	Balance    decimal.Decimal
	Currency   string
	CategoryID string
}

func (a Account) Row() Row {
	r := a.auditRow()
	r["name"] = a.Name
	r["balance"] = a.Balance
	r["currency"] = a.Currency
	r["categoryid"] = a.CategoryID
	return r
}

func AccountFromRow(r Row) (*Account, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	balance, err := r.Decimal("balance")
	if err != nil {
		return nil, err
	}
	return &Account{
		Audit:      audit,
		Name:       r.String("name"),
		Balance:    balance,
		Currency:   r.String("currency"),
		CategoryID: r.String("categoryid"),
	}, nil
}

// TransactionGroup is a top-level grouping for transaction categories.
type TransactionGroup struct {
	Audit
	Name        string
	DisplayRank int
}

func (g TransactionGroup) Row() Row {
	r := g.auditRow()
	r["name"] = g.Name
	r["displayrank"] = g.DisplayRank
	return r
}

func TransactionGroupFromRow(r Row) (*TransactionGroup, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	rank, err := r.Decimal("displayrank")
	if err != nil {
		return nil, err
	}
	return &TransactionGroup{
		Audit:       audit,
		Name:        r.String("name"),
		DisplayRank: int(rank.IntPart()),
	}, nil
}

// TransactionCategory is a spending category owned by a TransactionGroup.
type TransactionCategory struct {
	Audit
	Name    string
	GroupID string
}

func (c TransactionCategory) Row() Row {
	r := c.auditRow()
	r["name"] = c.Name
	r["groupid"] = c.GroupID
	return r
}

func TransactionCategoryFromRow(r Row) (*TransactionCategory, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	return &TransactionCategory{
		Audit:   audit,
		Name:    r.String("name"),
		GroupID: r.String("groupid"),
	}, nil
}

// Transaction is a dated amount applied against an account under a
// category. TransferID links the paired leg when the transaction is half of
// a transfer.
type Transaction struct {
	Audit
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	AccountID   string
	CategoryID  string
	TransferID  string
}

func (t Transaction) Row() Row {
	r := t.auditRow()
	r["amount"] = t.Amount
	r["date"] = t.Date
	r["description"] = t.Description
	r["accountid"] = t.AccountID
	r["categoryid"] = t.CategoryID
	r["transferid"] = t.TransferID
	return r
}

func TransactionFromRow(r Row) (*Transaction, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	amount, err := r.Decimal("amount")
	if err != nil {
		return nil, err
	}
	date, err := r.Time("date")
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Audit:       audit,
		Amount:      amount,
		Date:        date,
		Description: r.String("description"),
		AccountID:   r.String("accountid"),
		CategoryID:  r.String("categoryid"),
		TransferID:  r.String("transferid"),
	}, nil
}

// Recurring is a template that periodically materializes into a
// Transaction. Rule holds the recurrence rule; NextRun is the next
// materialization due date; FailureCount tracks consecutive failures.
type Recurring struct {
	Audit
	AccountID    string
	CategoryID   string
	Amount       decimal.Decimal
	Description  string
	Rule         string
	IsActive     bool
	FailureCount int
	NextRun      time.Time
}

func (rc Recurring) Row() Row {
	r := rc.auditRow()
	r["accountid"] = rc.AccountID
	r["categoryid"] = rc.CategoryID
	r["amount"] = rc.Amount
	r["description"] = rc.Description
	r["rule"] = rc.Rule
	r["isactive"] = rc.IsActive
	r["failurecount"] = rc.FailureCount
	r["nextrun"] = rc.NextRun
	return r
}

func RecurringFromRow(r Row) (*Recurring, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	amount, err := r.Decimal("amount")
	if err != nil {
		return nil, err
	}
	failures, err := r.Decimal("failurecount")
	if err != nil {
		return nil, err
	}
	nextRun, err := r.Time("nextrun")
	if err != nil {
		return nil, err
	}
	return &Recurring{
		Audit:        audit,
		AccountID:    r.String("accountid"),
		CategoryID:   r.String("categoryid"),
		Amount:       amount,
		Description:  r.String("description"),
		Rule:         r.String("rule"),
		IsActive:     r.Bool("isactive"),
		FailureCount: int(failures.IntPart()),
		NextRun:      nextRun,
	}, nil
}

// Configuration is a free-form tenant-scoped key/value row addressed by a
// table/type/key triple.
type Configuration struct {
	Audit
	Table string
	Type  string
	Key   string
	Value string
}

func (c Configuration) Row() Row {
	r := c.auditRow()
	r["table"] = c.Table
	r["type"] = c.Type
	r["key"] = c.Key
	r["value"] = c.Value
	return r
}

func ConfigurationFromRow(r Row) (*Configuration, error) {
	audit, err := auditFromRow(r)
	if err != nil {
		return nil, err
	}
	return &Configuration{
		Audit: audit,
		Table: r.String("table"),
		Type:  r.String("type"),
		Key:   r.String("key"),
		Value: r.String("value"),
	}, nil
}
