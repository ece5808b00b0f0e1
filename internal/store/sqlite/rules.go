package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

const ruleColumns = "id, kind, description, amount_cents, category, start_date, frequency, interval, occurrence_limit, end_date, last_processed, active"

func (s *Store) CreateRule(ctx context.Context, rule core.RecurrenceRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (id, kind, description, amount_cents, category, start_date, frequency, interval, occurrence_limit, end_date, last_processed, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, string(rule.Kind), rule.Description, rule.Amount.Cents, rule.Category,
		rule.StartDate.String(), string(rule.Frequency), rule.Interval, rule.OccurrenceLimit,
		rule.EndDate.String(), rule.LastProcessed.String(), rule.Active)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, id string) (core.RecurrenceRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurrenceRule{}, fmt.Errorf("%w: rule %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

func (s *Store) ListRules(ctx context.Context, activeOnly bool) ([]core.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY start_date, id`
	if activeOnly {
		query = `SELECT ` + ruleColumns + ` FROM rules WHERE active = 1 ORDER BY start_date, id`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// UpdateRule rewrites every field except the watermark, which only
// SaveRuleProgress moves.
func (s *Store) UpdateRule(ctx context.Context, rule core.RecurrenceRule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET kind = ?, description = ?, amount_cents = ?, category = ?, start_date = ?,
		    frequency = ?, interval = ?, occurrence_limit = ?, end_date = ?, active = ?
		WHERE id = ?`,
		string(rule.Kind), rule.Description, rule.Amount.Cents, rule.Category,
		rule.StartDate.String(), string(rule.Frequency), rule.Interval,
		rule.OccurrenceLimit, rule.EndDate.String(), rule.Active, rule.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return affectedOrNotFound(res, "rule", rule.ID)
}

func (s *Store) SaveRuleProgress(ctx context.Context, id string, watermark core.Date) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET last_processed = ? WHERE id = ?`, watermark.String(), id)
	if err != nil {
		return fmt.Errorf("save rule progress: %w", err)
	}
	return affectedOrNotFound(res, "rule", id)
}

func (s *Store) DisableRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rules SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("disable rule: %w", err)
	}
	return affectedOrNotFound(res, "rule", id)
}

func scanRule(row rowScanner) (core.RecurrenceRule, error) {
	var (
		rule          core.RecurrenceRule
		kind          string
		frequency     string
		startDate     string
		endDate       string
		lastProcessed string
	)
	if err := row.Scan(&rule.ID, &kind, &rule.Description, &rule.Amount.Cents, &rule.Category,
		&startDate, &frequency, &rule.Interval, &rule.OccurrenceLimit,
		&endDate, &lastProcessed, &rule.Active); err != nil {
		return core.RecurrenceRule{}, err
	}
	rule.Kind = core.Kind(kind)
	rule.Frequency = core.Frequency(frequency)

	var err error
	if rule.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("stored start date: %w", err)
	}
	if rule.EndDate, err = parseOptionalDate(endDate); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("stored end date: %w", err)
	}
	if rule.LastProcessed, err = parseOptionalDate(lastProcessed); err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("stored watermark: %w", err)
	}
	return rule, nil
}

// parseOptionalDate maps the empty string to the zero date; optional
// dates are stored as ''.
func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func affectedOrNotFound(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, entity, id)
	}
	return nil
}
