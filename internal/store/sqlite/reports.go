package sqlite

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core"
)

func (s *Store) MonthlyReport(ctx context.Context, year, month int) (core.MonthlyReport, error) {
	from, to := monthRange(year, month)
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0),
			COUNT(*)
		FROM transactions
		WHERE date >= ? AND date < ?`, from, to)

	report := core.MonthlyReport{Year: year, Month: month}
	var income, expenses int64
	if err := row.Scan(&income, &expenses, &report.Count); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly report: %w", err)
	}
	report.Income = core.Money{Cents: income}
	report.Expenses = core.Money{Cents: expenses}
	report.Net = core.Money{Cents: income - expenses}
	return report, nil
}

func (s *Store) CategoryReport(ctx context.Context, year, month int) ([]core.CategoryTotal, error) {
	from, to := monthRange(year, month)
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, kind, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE date >= ? AND date < ?
		GROUP BY category, kind
		ORDER BY SUM(amount_cents) DESC, category`, from, to)
	if err != nil {
		return nil, fmt.Errorf("category report: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var t core.CategoryTotal
		var kind string
		var cents int64
		if err := rows.Scan(&t.Category, &kind, &cents, &t.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		t.Kind = core.Kind(kind)
		t.Total = core.Money{Cents: cents}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// WeekdayReport sums expense transactions per day of week. strftime's
// %w numbers days 0-6 from Sunday, matching time.Weekday. All seven
// days are returned, zero filled.
func (s *Store) WeekdayReport(ctx context.Context, year, month int) ([]core.WeekdayTotal, error) {
	from, to := monthRange(year, month)
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%w', date) AS INTEGER), SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE kind = 'expense' AND date >= ? AND date < ?
		GROUP BY 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("weekday report: %w", err)
	}
	defer rows.Close()

	totals := make([]core.WeekdayTotal, 7)
	for i := range totals {
		totals[i].Weekday = time.Weekday(i)
	}
	for rows.Next() {
		var day int
		var cents int64
		var count int
		if err := rows.Scan(&day, &cents, &count); err != nil {
			return nil, fmt.Errorf("scan weekday total: %w", err)
		}
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("weekday report: day %d out of range", day)
		}
		totals[day].Total = core.Money{Cents: cents}
		totals[day].Count = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekday totals: %w", err)
	}
	return totals, nil
}
