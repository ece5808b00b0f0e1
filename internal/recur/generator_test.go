package recur

import (
	"errors"
	"testing"

	"tally/internal/core"
)

func monthlyRule(start core.Date) core.RecurrenceRule {
	return core.RecurrenceRule{
		ID:        "rule-1",
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 120000},
		Category:  "Housing",
		StartDate: start,
		Frequency: core.Monthly,
		Interval:  1,
		Active:    true,
	}
}

func assertDates(t *testing.T, occs []Occurrence, want []core.Date) {
	t.Helper()
	if len(occs) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(occs), len(want), occs)
	}
	for i, o := range occs {
		if !o.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d = %s, want %s", i, o.Date, want[i])
		}
	}
}

func TestGenerateMonthlyClampsFromAnchor(t *testing.T) {
	occs, err := Generate(monthlyRule(core.NewDate(2024, 1, 31)), Window{To: core.NewDate(2024, 4, 30)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 2, 29),
		core.NewDate(2024, 3, 31), // back to 31, the clamp never compounds
		core.NewDate(2024, 4, 30),
	})
	for i, o := range occs {
		if o.Sequence != i+1 {
			t.Fatalf("occurrence %d has sequence %d, want %d", i, o.Sequence, i+1)
		}
	}
}

func TestGenerateMonthlyClampNonLeap(t *testing.T) {
	occs, err := Generate(monthlyRule(core.NewDate(2025, 1, 31)), Window{To: core.NewDate(2025, 3, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{
		core.NewDate(2025, 1, 31),
		core.NewDate(2025, 2, 28),
		core.NewDate(2025, 3, 31),
	})
}

func TestGenerateWeeklyIntervalWithLimit(t *testing.T) {
	rule := core.RecurrenceRule{
		ID:              "rule-2",
		Kind:            core.Income,
		Amount:          core.Money{Cents: 5000},
		Category:        "Freelance",
		StartDate:       core.NewDate(2024, 1, 1),
		Frequency:       core.Weekly,
		Interval:        2,
		OccurrenceLimit: 3,
		Active:          true,
	}
	occs, err := Generate(rule, Window{To: core.NewDate(2024, 12, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 15),
		core.NewDate(2024, 1, 29),
	})
}

func TestGenerateEndDateStopsFirst(t *testing.T) {
	rule := core.RecurrenceRule{
		ID:              "rule-3",
		Kind:            core.Income,
		Amount:          core.Money{Cents: 5000},
		Category:        "Freelance",
		StartDate:       core.NewDate(2024, 1, 1),
		Frequency:       core.Weekly,
		Interval:        2,
		OccurrenceLimit: 3,
		EndDate:         core.NewDate(2024, 1, 20),
		Active:          true,
	}
	occs, err := Generate(rule, Window{To: core.NewDate(2024, 12, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// Jan 29 is past the end date, so the limit of three is never reached.
	assertDates(t, occs, []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 15),
	})
}

func TestGenerateSkippedOccurrencesStillCount(t *testing.T) {
	rule := core.RecurrenceRule{
		ID:              "rule-4",
		Kind:            core.Expense,
		Amount:          core.Money{Cents: 999},
		Category:        "Entertainment",
		StartDate:       core.NewDate(2024, 1, 1),
		Frequency:       core.Monthly,
		Interval:        1,
		OccurrenceLimit: 3,
		Active:          true,
	}
	occs, err := Generate(rule, Window{From: core.NewDate(2024, 2, 15), To: core.NewDate(2024, 12, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// Jan 1 and Feb 1 fall before the window but consume the limit, so
	// only the third occurrence is emitted.
	assertDates(t, occs, []core.Date{core.NewDate(2024, 3, 1)})
	if occs[0].Sequence != 3 {
		t.Fatalf("sequence = %d, want 3", occs[0].Sequence)
	}
}

func TestGenerateYearlyLeapAnchor(t *testing.T) {
	rule := core.RecurrenceRule{
		ID:        "rule-5",
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 30000},
		Category:  "Taxes",
		StartDate: core.NewDate(2024, 2, 29),
		Frequency: core.Yearly,
		Interval:  1,
		Active:    true,
	}
	occs, err := Generate(rule, Window{To: core.NewDate(2028, 12, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{
		core.NewDate(2024, 2, 29),
		core.NewDate(2025, 2, 28),
		core.NewDate(2026, 2, 28),
		core.NewDate(2027, 2, 28),
		core.NewDate(2028, 2, 29),
	})
}

func TestGenerateDailyInterval(t *testing.T) {
	rule := core.RecurrenceRule{
		ID:        "rule-6",
		Kind:      core.Expense,
		Amount:    core.Money{Cents: 450},
		Category:  "Transport",
		StartDate: core.NewDate(2024, 1, 1),
		Frequency: core.Daily,
		Interval:  10,
		Active:    true,
	}
	occs, err := Generate(rule, Window{To: core.NewDate(2024, 2, 1)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 11),
		core.NewDate(2024, 1, 21),
		core.NewDate(2024, 1, 31),
	})
}

func TestGenerateOneShotRule(t *testing.T) {
	rule := monthlyRule(core.NewDate(2024, 5, 10))
	rule.EndDate = rule.StartDate
	occs, err := Generate(rule, Window{})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	assertDates(t, occs, []core.Date{core.NewDate(2024, 5, 10)})
}

func TestGenerateWindowBeyondEndIsEmpty(t *testing.T) {
	rule := monthlyRule(core.NewDate(2024, 1, 1))
	rule.EndDate = core.NewDate(2024, 1, 10)
	occs, err := Generate(rule, Window{From: core.NewDate(2024, 6, 1)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(occs) != 0 {
		t.Fatalf("expected no occurrences, got %v", occs)
	}
}

func TestGenerateRepeatable(t *testing.T) {
	rule := monthlyRule(core.NewDate(2024, 1, 31))
	win := Window{To: core.NewDate(2024, 12, 31)}

	first, err := Generate(rule, win)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := Generate(rule, win)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Date.Equal(second[i].Date) || first[i].Sequence != second[i].Sequence {
			t.Fatalf("occurrence %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateUnboundedRejected(t *testing.T) {
	_, err := Generate(monthlyRule(core.NewDate(2024, 1, 1)), Window{})
	if !errors.Is(err, core.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestGenerateFromAfterToRejected(t *testing.T) {
	win := Window{From: core.NewDate(2024, 6, 1), To: core.NewDate(2024, 1, 1)}
	_, err := Generate(monthlyRule(core.NewDate(2024, 1, 1)), win)
	if !errors.Is(err, core.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestGenerateInvalidRuleRejected(t *testing.T) {
	rule := monthlyRule(core.NewDate(2024, 1, 1))
	rule.Interval = 0
	_, err := Generate(rule, Window{To: core.NewDate(2024, 12, 31)})
	if !errors.Is(err, core.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestSequenceExhaustion(t *testing.T) {
	rule := monthlyRule(core.NewDate(2024, 1, 1))
	rule.OccurrenceLimit = 2
	s, err := NewSequence(rule, Window{To: core.NewDate(2024, 12, 31)})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, ok := s.Next(); !ok {
			t.Fatalf("expected occurrence %d", i+1)
		}
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("expected exhausted sequence")
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("exhausted sequence must stay exhausted")
	}
}
