// Package recur turns recurrence rules into concrete occurrence dates
// and materializes the due ones into stored transactions.
package recur

import (
	"fmt"

	"tally/internal/core"
)

// Occurrence is one generated hit of a rule. Sequence is 1-based and
// counts every occurrence since the rule's start date, including ones
// skipped for falling before the requested window, so occurrence
// limits hold no matter which window a caller asks for.
type Occurrence struct {
	Date     core.Date `json:"date"`
	Sequence int       `json:"sequence"`
}

// Window bounds a generation run. A zero From defaults to the rule's
// start date, a zero To to the rule's end date.
type Window struct {
	From core.Date
	To   core.Date
}

// Sequence walks one rule's occurrences in strictly increasing date
// order. Construct with NewSequence, pull with Next.
type Sequence struct {
	rule core.RecurrenceRule
	from core.Date
	to   core.Date
	step int
	seq  int
	done bool
}

// NewSequence validates the rule and window. A rule with neither an
// occurrence limit nor an end date needs an explicit window upper
// bound, otherwise generation would never terminate and the window is
// rejected with core.ErrInvalidWindow.
func NewSequence(rule core.RecurrenceRule, win Window) (*Sequence, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if !win.From.IsZero() && !win.To.IsZero() && win.From.After(win.To) {
		return nil, fmt.Errorf("%w: from %s is after to %s", core.ErrInvalidWindow, win.From, win.To)
	}
	from := win.From
	if from.IsZero() {
		from = rule.StartDate
	}
	to := win.To
	if to.IsZero() {
		to = rule.EndDate
	}
	if to.IsZero() && rule.Unbounded() {
		return nil, fmt.Errorf("%w: rule has no end date or occurrence limit, an upper bound is required", core.ErrInvalidWindow)
	}
	return &Sequence{rule: rule, from: from, to: to}, nil
}

// Next returns the next occurrence inside the window. Occurrences
// before the window's lower bound are counted against the limit but
// not returned. The second result is false once the sequence is
// exhausted.
func (s *Sequence) Next() (Occurrence, bool) {
	for !s.done {
		if s.rule.OccurrenceLimit > 0 && s.seq >= s.rule.OccurrenceLimit {
			s.done = true
			break
		}
		d := s.occurrenceDate(s.step)
		if !s.rule.EndDate.IsZero() && d.After(s.rule.EndDate) {
			s.done = true
			break
		}
		if !s.to.IsZero() && d.After(s.to) {
			s.done = true
			break
		}
		s.step++
		s.seq++
		if d.Before(s.from) {
			continue
		}
		return Occurrence{Date: d, Sequence: s.seq}, true
	}
	return Occurrence{}, false
}

// occurrenceDate steps n cadence units from the rule's start date.
// Stepping always originates at the anchor so month-end clamping never
// compounds: a Jan 31 monthly rule hits Feb 29 and then Mar 31, not
// Mar 29.
func (s *Sequence) occurrenceDate(n int) core.Date {
	start := s.rule.StartDate
	n *= s.rule.Interval
	switch s.rule.Frequency {
	case core.Daily:
		return start.AddDays(n)
	case core.Weekly:
		return start.AddDays(7 * n)
	case core.Monthly:
		return start.AddMonths(n)
	case core.Yearly:
		return start.AddYears(n)
	}
	// Frequency is validated at construction.
	return start
}

// Generate collects every occurrence of rule inside win.
func Generate(rule core.RecurrenceRule, win Window) ([]Occurrence, error) {
	s, err := NewSequence(rule, win)
	if err != nil {
		return nil, err
	}
	var occs []Occurrence
	for {
		o, ok := s.Next()
		if !ok {
			return occs, nil
		}
		occs = append(occs, o)
	}
}
