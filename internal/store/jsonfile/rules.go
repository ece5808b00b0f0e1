package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"tally/internal/core"
)

type ruleRecord struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Description     string `json:"description,omitempty"`
	AmountCents     int64  `json:"amount_cents"`
	Category        string `json:"category"`
	StartDate       string `json:"start_date"`
	Frequency       string `json:"frequency"`
	Interval        int    `json:"interval"`
	OccurrenceLimit int    `json:"occurrence_limit,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	LastProcessed   string `json:"last_processed,omitempty"`
	Active          bool   `json:"active"`
}

func toRuleRecord(r core.RecurrenceRule) ruleRecord {
	return ruleRecord{
		ID:              r.ID,
		Kind:            string(r.Kind),
		Description:     r.Description,
		AmountCents:     r.Amount.Cents,
		Category:        r.Category,
		StartDate:       r.StartDate.String(),
		Frequency:       string(r.Frequency),
		Interval:        r.Interval,
		OccurrenceLimit: r.OccurrenceLimit,
		EndDate:         r.EndDate.String(),
		LastProcessed:   r.LastProcessed.String(),
		Active:          r.Active,
	}
}

func (r ruleRecord) toDomain() (core.RecurrenceRule, error) {
	start, err := core.ParseDate(r.StartDate)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	end, err := parseOptionalDate(r.EndDate)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	last, err := parseOptionalDate(r.LastProcessed)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return core.RecurrenceRule{
		ID:              r.ID,
		Kind:            core.Kind(r.Kind),
		Description:     r.Description,
		Amount:          core.Money{Cents: r.AmountCents},
		Category:        r.Category,
		StartDate:       start,
		Frequency:       core.Frequency(r.Frequency),
		Interval:        r.Interval,
		OccurrenceLimit: r.OccurrenceLimit,
		EndDate:         end,
		LastProcessed:   last,
		Active:          r.Active,
	}, nil
}

func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func (s *Store) CreateRule(_ context.Context, rule core.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s already exists", rule.ID)
	}
	s.rules[rule.ID] = rule
	if err := s.persistRules(); err != nil {
		delete(s.rules, rule.ID)
		return err
	}
	return nil
}

func (s *Store) GetRule(_ context.Context, id string) (core.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return core.RecurrenceRule{}, fmt.Errorf("%w: rule %s", core.ErrNotFound, id)
	}
	return rule, nil
}

func (s *Store) ListRules(_ context.Context, activeOnly bool) ([]core.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []core.RecurrenceRule
	for _, r := range s.rules {
		if activeOnly && !r.Active {
			continue
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].StartDate.Equal(rules[j].StartDate) {
			return rules[i].StartDate.Before(rules[j].StartDate)
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

// UpdateRule rewrites every field except the watermark, which only
// SaveRuleProgress moves.
func (s *Store) UpdateRule(_ context.Context, rule core.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rules[rule.ID]
	if !ok {
		return fmt.Errorf("%w: rule %s", core.ErrNotFound, rule.ID)
	}
	rule.LastProcessed = prev.LastProcessed
	s.rules[rule.ID] = rule
	if err := s.persistRules(); err != nil {
		s.rules[rule.ID] = prev
		return err
	}
	return nil
}

func (s *Store) SaveRuleProgress(_ context.Context, id string, watermark core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: rule %s", core.ErrNotFound, id)
	}
	next := prev
	next.LastProcessed = watermark
	s.rules[id] = next
	if err := s.persistRules(); err != nil {
		s.rules[id] = prev
		return err
	}
	return nil
}

func (s *Store) DisableRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: rule %s", core.ErrNotFound, id)
	}
	next := prev
	next.Active = false
	s.rules[id] = next
	if err := s.persistRules(); err != nil {
		s.rules[id] = prev
		return err
	}
	return nil
}

func (s *Store) loadRules() error {
	data, ok, err := s.readFile(rulesFile)
	if err != nil || !ok {
		return err
	}
	var recs []ruleRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decode %s: %w", rulesFile, err)
	}
	for _, rec := range recs {
		rule, err := rec.toDomain()
		if err != nil {
			return fmt.Errorf("decode %s: %w", rulesFile, err)
		}
		s.rules[rule.ID] = rule
	}
	return nil
}

func (s *Store) persistRules() error {
	ids := make([]string, 0, len(s.rules))
	for id := range s.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]ruleRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, toRuleRecord(s.rules[id]))
	}
	return s.writeCollection(rulesFile, recs)
}
