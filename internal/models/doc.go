// Package models defines the data model for the finx personal-finance core.
//
// The package contains three categories of types:
//
// 1. The [Row] record currency: a field-name keyed map used by the storage
// adapters and the export/import engines. Rows carry typed values in memory
// (time.Time, decimal.Decimal, bool) and travel as formatted text through
// the portable export format.
//
// 2. Typed entities mirroring the tracked dataset:
//   - [AccountCategory] : asset/liability classification for accounts
//   - [Account] : balance-bearing account owned by a category
//   - [TransactionGroup] : top-level grouping for transaction categories
//   - [TransactionCategory] : spending category owned by a group
//   - [Transaction] : a dated amount against an account and category
//   - [Recurring] : a template that materializes into transactions
//   - [Configuration] : tenant-scoped key/value settings row
//
// 3. The [ModelConfig] registry: one static entry per entity describing its
// dependency rank, foreign keys, and field sets. Both engines and every
// backend adapter drive their behavior from this table; [VerifyRanks] checks
// its load-bearing ordering invariant at process start.
package models
