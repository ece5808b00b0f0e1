// Package jsonfile implements the storage ports on flat JSON files,
// one per collection. It trades query power for a data directory that
// plain tools can read and back up. Writes go through a temp file and
// a rename, so a crash never leaves a half-written collection behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"tally/internal/core"
)

const (
	transactionsFile = "transactions.json"
	rulesFile        = "rules.json"
	categoriesFile   = "categories.json"
)

// Store keeps every collection in memory and mirrors each mutation to
// its JSON file before making it visible.
type Store struct {
	dir string

	mu           sync.RWMutex
	transactions map[string]core.Transaction
	rules        map[string]core.RecurrenceRule
	categories   []core.Category
}

// Open loads the collections from dir, creating the directory and
// seeding the default categories on first use.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		dir:          dir,
		transactions: make(map[string]core.Transaction),
		rules:        make(map[string]core.RecurrenceRule),
	}
	if err := s.loadTransactions(); err != nil {
		return nil, err
	}
	if err := s.loadRules(); err != nil {
		return nil, err
	}
	if err := s.loadCategories(); err != nil {
		return nil, err
	}
	if len(s.categories) == 0 {
		s.categories = defaultCategories()
		if err := s.persistCategories(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Ping reports whether the data directory is still reachable.
func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cats []core.Category
	for _, c := range s.categories {
		if kind != "" && c.Kind != kind {
			continue
		}
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Kind != cats[j].Kind {
			return cats[i].Kind < cats[j].Kind
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (s *Store) CategoryExists(_ context.Context, name string, kind core.Kind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name && c.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

type categoryRecord struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Store) loadCategories() error {
	data, ok, err := s.readFile(categoriesFile)
	if err != nil || !ok {
		return err
	}
	var recs []categoryRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decode %s: %w", categoriesFile, err)
	}
	for _, r := range recs {
		s.categories = append(s.categories, core.Category{Name: r.Name, Kind: core.Kind(r.Kind)})
	}
	return nil
}

func (s *Store) persistCategories() error {
	recs := make([]categoryRecord, 0, len(s.categories))
	for _, c := range s.categories {
		recs = append(recs, categoryRecord{Name: c.Name, Kind: string(c.Kind)})
	}
	return s.writeCollection(categoriesFile, recs)
}

func defaultCategories() []core.Category {
	names := map[core.Kind][]string{
		core.Income:  {"Salary", "Freelance", "Investments", "Gifts", "Other income"},
		core.Expense: {"Housing", "Groceries", "Transport", "Dining", "Health", "Entertainment", "Travel", "Clothing", "Utilities", "Subscriptions", "Taxes", "Other expenses"},
	}
	var cats []core.Category
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		for _, name := range names[kind] {
			cats = append(cats, core.Category{Name: name, Kind: kind})
		}
	}
	return cats
}

// writeCollection marshals recs and atomically replaces the named
// collection file.
func (s *Store) writeCollection(name string, recs any) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) readFile(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}
