package jsonfile

import (
	"context"
	"sort"
	"time"

	"tally/internal/core"
)

func (s *Store) MonthlyReport(_ context.Context, year, month int) (core.MonthlyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := core.MonthlyReport{Year: year, Month: month}
	for _, tx := range s.transactions {
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		report.Count++
		switch tx.Kind {
		case core.Income:
			report.Income.Cents += tx.Amount.Cents
		case core.Expense:
			report.Expenses.Cents += tx.Amount.Cents
		}
	}
	report.Net = core.Money{Cents: report.Income.Cents - report.Expenses.Cents}
	return report, nil
}

func (s *Store) CategoryReport(_ context.Context, year, month int) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		category string
		kind     core.Kind
	}
	agg := make(map[key]*core.CategoryTotal)
	for _, tx := range s.transactions {
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		k := key{category: tx.Category, kind: tx.Kind}
		t, ok := agg[k]
		if !ok {
			t = &core.CategoryTotal{Category: tx.Category, Kind: tx.Kind}
			agg[k] = t
		}
		t.Total.Cents += tx.Amount.Cents
		t.Count++
	}

	totals := make([]core.CategoryTotal, 0, len(agg))
	for _, t := range agg {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total.Cents != totals[j].Total.Cents {
			return totals[i].Total.Cents > totals[j].Total.Cents
		}
		return totals[i].Category < totals[j].Category
	})
	if len(totals) == 0 {
		return nil, nil
	}
	return totals, nil
}

// WeekdayReport sums expense transactions per day of week. All seven
// days are returned, zero filled, Sunday first.
func (s *Store) WeekdayReport(_ context.Context, year, month int) ([]core.WeekdayTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make([]core.WeekdayTotal, 7)
	for i := range totals {
		totals[i].Weekday = time.Weekday(i)
	}
	for _, tx := range s.transactions {
		if tx.Kind != core.Expense || tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		day := int(tx.Date.Weekday())
		totals[day].Total.Cents += tx.Amount.Cents
		totals[day].Count++
	}
	return totals, nil
}
