// Package core contains the domain model shared by every tally
// component: transactions, recurrence rules, categories and the
// calendar arithmetic that drives occurrence generation.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const maxDescriptionLen = 200

type (
	// Kind separates money coming in from money going out.
	Kind string

	// Frequency is the cadence unit of a recurrence rule.
	Frequency string

	// Transaction is a single dated ledger entry. RuleID is empty for
	// entries recorded by hand and carries the generating rule's ID
	// for materialized ones.
	Transaction struct {
		ID          string
		Kind        Kind
		Date        Date
		Description string
		Amount      Money
		Category    string
		RuleID      string
		CreatedAt   time.Time
	}

	// RecurrenceRule describes a repeating transaction: what to record
	// and on which cadence. StartDate is the anchor every occurrence
	// is stepped from. OccurrenceLimit zero means unlimited and a zero
	// EndDate means open ended. LastProcessed is the materialization
	// watermark, the most recent occurrence date already turned into a
	// transaction.
	RecurrenceRule struct {
		ID              string
		Kind            Kind
		Description     string
		Amount          Money
		Category        string
		StartDate       Date
		Frequency       Frequency
		Interval        int
		OccurrenceLimit int
		EndDate         Date
		LastProcessed   Date
		Active          bool
	}

	// Category is a named bucket transactions are filed under, scoped
	// by kind so income and expense keep separate lists.
	Category struct {
		Name string
		Kind Kind
	}
)

var (
	ErrInvalidRule        = errors.New("invalid recurrence rule")
	ErrInvalidWindow      = errors.New("invalid generation window")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownKind        = errors.New("unknown kind")
	ErrEmptyCategory      = errors.New("empty category")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("not found")
)

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Income, Expense:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParseFrequency converts a wire value into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Daily, Weekly, Monthly, Yearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, s)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	switch t.Kind {
	case Income, Expense:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Validate reports the first rule violation found. Every violation
// wraps ErrInvalidRule so callers can classify with a single errors.Is.
func (r RecurrenceRule) Validate() error {
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidRule)
	}
	switch r.Kind {
	case Income, Expense:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}
	switch r.Frequency {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidRule)
	}
	if r.OccurrenceLimit < 0 {
		return fmt.Errorf("%w: occurrence limit cannot be negative", ErrInvalidRule)
	}
	if err := r.Amount.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidRule)
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: %v", ErrInvalidRule, ErrDescriptionTooLong)
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidRule)
	}
	return nil
}

// Unbounded reports whether the rule on its own never stops producing
// occurrences. Such rules need an explicit window bound at generation
// time.
func (r RecurrenceRule) Unbounded() bool {
	return r.OccurrenceLimit == 0 && r.EndDate.IsZero()
}
