// Package store defines the storage ports the backends implement.
// Handlers and services depend on these interfaces, never on a
// concrete backend.
package store

import (
	"context"

	"tally/internal/core"
)

// TransactionStore persists ledger entries. InsertBatch is all or
// nothing: either every transaction in the batch becomes visible or
// none does.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	InsertBatch(ctx context.Context, txs []core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// RuleStore persists recurrence rules. The materialization watermark
// moves only through SaveRuleProgress; UpdateRule never touches it.
type RuleStore interface {
	CreateRule(ctx context.Context, rule core.RecurrenceRule) error
	GetRule(ctx context.Context, id string) (core.RecurrenceRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]core.RecurrenceRule, error)
	UpdateRule(ctx context.Context, rule core.RecurrenceRule) error
	SaveRuleProgress(ctx context.Context, id string, watermark core.Date) error
	DisableRule(ctx context.Context, id string) error
}

// CategoryStore reads the seeded category lists. An empty kind lists
// both kinds.
type CategoryStore interface {
	ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error)
	CategoryExists(ctx context.Context, name string, kind core.Kind) (bool, error)
}

// ReportStore aggregates one calendar month of the ledger.
type ReportStore interface {
	MonthlyReport(ctx context.Context, year, month int) (core.MonthlyReport, error)
	CategoryReport(ctx context.Context, year, month int) ([]core.CategoryTotal, error)
	WeekdayReport(ctx context.Context, year, month int) ([]core.WeekdayTotal, error)
}
