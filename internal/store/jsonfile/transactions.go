package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tally/internal/core"
)

type transactionRecord struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Date        string    `json:"date"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	RuleID      string    `json:"rule_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionRecord(tx core.Transaction) transactionRecord {
	return transactionRecord{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Date:        tx.Date.String(),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		RuleID:      tx.RuleID,
		CreatedAt:   tx.CreatedAt,
	}
}

func (r transactionRecord) toDomain() (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	return core.Transaction{
		ID:          r.ID,
		Kind:        core.Kind(r.Kind),
		Date:        date,
		Description: r.Description,
		Amount:      core.Money{Cents: r.AmountCents},
		Category:    r.Category,
		RuleID:      r.RuleID,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.transactions[tx.ID] = tx
	if err := s.persistTransactions(); err != nil {
		delete(s.transactions, tx.ID)
		return err
	}
	return nil
}

// InsertBatch adds every transaction or none: the in-memory map is
// rolled back when the file write fails, and the file itself is only
// ever replaced whole.
func (s *Store) InsertBatch(_ context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]string, 0, len(txs))
	rollback := func() {
		for _, id := range added {
			delete(s.transactions, id)
		}
	}
	for _, tx := range txs {
		if _, exists := s.transactions[tx.ID]; exists {
			rollback()
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now().UTC()
		}
		s.transactions[tx.ID] = tx
		added = append(added, tx.ID)
	}
	if err := s.persistTransactions(); err != nil {
		rollback()
		return err
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, year, month int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []core.Transaction
	for _, tx := range s.transactions {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			txs = append(txs, tx)
		}
	}
	sortTransactions(txs)
	return txs, nil
}

func (s *Store) ListAllTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		txs = append(txs, tx)
	}
	sortTransactions(txs)
	return txs, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	delete(s.transactions, id)
	if err := s.persistTransactions(); err != nil {
		s.transactions[id] = tx
		return err
	}
	return nil
}

func (s *Store) loadTransactions() error {
	data, ok, err := s.readFile(transactionsFile)
	if err != nil || !ok {
		return err
	}
	var recs []transactionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decode %s: %w", transactionsFile, err)
	}
	for _, r := range recs {
		tx, err := r.toDomain()
		if err != nil {
			return fmt.Errorf("decode %s: %w", transactionsFile, err)
		}
		s.transactions[tx.ID] = tx
	}
	return nil
}

func (s *Store) persistTransactions() error {
	txs := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		txs = append(txs, tx)
	}
	sortTransactions(txs)
	recs := make([]transactionRecord, 0, len(txs))
	for _, tx := range txs {
		recs = append(recs, toTransactionRecord(tx))
	}
	return s.writeCollection(transactionsFile, recs)
}

func sortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
