package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/recur"
	"tally/internal/store"
)

// RecurringService materializes occurrences of active recurrence rules
// into real transactions.
type RecurringService struct {
	rules        store.RuleStore
	materializer *recur.Materializer
	concurrency  int
}

// NewRecurringService wires a materializer over the given stores.
// concurrency bounds how many rules are processed in parallel during a
// sweep; values below 1 fall back to serial processing.
func NewRecurringService(rules store.RuleStore, txs store.TransactionStore, concurrency int) *RecurringService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RecurringService{
		rules:        rules,
		materializer: recur.NewMaterializer(rules, txs),
		concurrency:  concurrency,
	}
}

// ProcessDueRules sweeps every active rule up to asOf and persists the
// occurrences that are due. Rules are independent, so one failing rule
// is logged and skipped rather than aborting the sweep. Returns the
// number of transactions persisted.
func (s *RecurringService) ProcessDueRules(ctx context.Context, asOf core.Date) (int, error) {
	rules, err := s.rules.ListRules(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("list active rules: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurrence rules",
		"total_active", len(rules),
		"as_of", asOf.String(),
		"concurrency", s.concurrency)

	var persisted int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, rule := range rules {
		rule := rule // per-iteration copy; required while go.mod is below go 1.22
		g.Go(func() error {
			res, err := s.materializer.MaterializeWindow(ctx, rule.ID, recur.Window{To: asOf})
			if err != nil {
				slog.ErrorContext(ctx, "Failed to materialize rule",
					"rule_id", rule.ID,
					"description", rule.Description,
					"error", err)
				return nil
			}

			if res.Persisted > 0 {
				atomic.AddInt64(&persisted, int64(res.Persisted))
				slog.InfoContext(ctx, "Materialized rule occurrences",
					"rule_id", rule.ID,
					"description", rule.Description,
					"persisted", res.Persisted,
					"watermark", res.Watermark.String())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&persisted)), err
	}

	total := int(atomic.LoadInt64(&persisted))
	slog.InfoContext(ctx, "Recurrence sweep complete",
		"persisted", total,
		"rules_checked", len(rules))

	return total, nil
}

// MaterializeRule materializes a single rule over an explicit window.
func (s *RecurringService) MaterializeRule(ctx context.Context, ruleID string, win recur.Window) (recur.Result, error) {
	return s.materializer.MaterializeWindow(ctx, ruleID, win)
}

// PreviewRule generates the occurrences a rule would produce in the
// window without persisting anything.
func (s *RecurringService) PreviewRule(ctx context.Context, ruleID string, win recur.Window) ([]recur.Occurrence, error) {
	rule, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return recur.Generate(rule, win)
}
