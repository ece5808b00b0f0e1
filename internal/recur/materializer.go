package recur

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
)

// RuleStore is the slice of rule storage the materializer needs.
type RuleStore interface {
	GetRule(ctx context.Context, id string) (core.RecurrenceRule, error)
	SaveRuleProgress(ctx context.Context, id string, watermark core.Date) error
}

// TransactionStore persists materialized transactions. InsertBatch is
// all or nothing: either every transaction in the batch becomes
// visible or none does.
type TransactionStore interface {
	InsertBatch(ctx context.Context, txs []core.Transaction) error
}

// PersistenceError marks a storage failure during materialization. The
// rule's watermark is never advanced when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Result reports one materialization run.
type Result struct {
	Persisted int
	Watermark core.Date
}

// Materializer converts due occurrences into stored transactions
// exactly once per occurrence date. Runs for the same rule are
// serialized on a per rule lock; runs for different rules proceed in
// parallel.
type Materializer struct {
	rules RuleStore
	txs   TransactionStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMaterializer(rules RuleStore, txs TransactionStore) *Materializer {
	return &Materializer{
		rules: rules,
		txs:   txs,
		locks: make(map[string]*sync.Mutex),
	}
}

// MaterializeWindow generates the rule's occurrences inside win and
// persists the ones the watermark does not cover yet, then advances
// the watermark to the last persisted date. A zero win.From starts
// just past the watermark so sweeps do not regenerate long histories;
// occurrence numbering is unaffected because skipped occurrences still
// count.
func (m *Materializer) MaterializeWindow(ctx context.Context, ruleID string, win Window) (Result, error) {
	unlock := m.lockRule(ruleID)
	defer unlock()

	rule, err := m.rules.GetRule(ctx, ruleID)
	if err != nil {
		return Result{}, err
	}
	if !rule.Active {
		return Result{}, fmt.Errorf("%w: rule %s is disabled", core.ErrInvalidRule, ruleID)
	}
	if win.From.IsZero() && !rule.LastProcessed.IsZero() {
		win.From = rule.LastProcessed.AddDays(1)
		if !win.To.IsZero() && win.From.After(win.To) {
			// The watermark already covers the whole window.
			return Result{Watermark: rule.LastProcessed}, nil
		}
	}
	occs, err := Generate(rule, win)
	if err != nil {
		return Result{}, err
	}

	watermark := rule.LastProcessed
	var batch []core.Transaction
	for _, o := range occs {
		if !watermark.IsZero() && !o.Date.After(watermark) {
			continue
		}
		batch = append(batch, materializedTransaction(rule, o.Date))
	}
	if len(batch) == 0 {
		return Result{Watermark: watermark}, nil
	}

	if err := m.txs.InsertBatch(ctx, batch); err != nil {
		return Result{}, &PersistenceError{Op: "insert transactions", Err: err}
	}
	newWatermark := batch[len(batch)-1].Date
	if err := m.rules.SaveRuleProgress(ctx, ruleID, newWatermark); err != nil {
		return Result{}, &PersistenceError{Op: "save rule progress", Err: err}
	}
	return Result{Persisted: len(batch), Watermark: newWatermark}, nil
}

func materializedTransaction(rule core.RecurrenceRule, day core.Date) core.Transaction {
	return core.Transaction{
		ID:          uuid.NewString(),
		Kind:        rule.Kind,
		Date:        day,
		Description: rule.Description,
		Amount:      rule.Amount,
		Category:    rule.Category,
		RuleID:      rule.ID,
		CreatedAt:   time.Now().UTC(),
	}
}

// lockRule locks the mutex for ruleID, creating it on first use, and
// returns the unlock.
func (m *Materializer) lockRule(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}
