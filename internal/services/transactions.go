// Package services orchestrates storage and messaging for the HTTP
// handlers and workers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/store"
)

// TransactionService coordinates transaction writes with the event
// stream. Storage is the source of truth; publishing is best effort
// and never fails the request.
type TransactionService struct {
	txs    store.TransactionStore
	cats   store.CategoryStore
	events *amqp.Client
}

func NewTransactionService(txs store.TransactionStore, cats store.CategoryStore, events *amqp.Client) *TransactionService {
	return &TransactionService{
		txs:    txs,
		cats:   cats,
		events: events,
	}
}

// CreateTransaction validates, persists and announces a new transaction.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx.Category, tx.Kind); err != nil {
		return core.Transaction{}, err
	}

	if err := s.txs.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishEvent(ctx, amqp.NewTransactionEvent(amqp.ActionCreated, tx))

	return tx, nil
}

// ImportTransactions persists a batch all-or-nothing. Every row is
// validated before anything is written, so a bad row aborts the whole
// import.
func (s *TransactionService) ImportTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range txs {
		txs[i].ID = uuid.NewString()
		txs[i].CreatedAt = now

		if err := txs[i].Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := s.checkCategory(ctx, txs[i].Category, txs[i].Kind); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := s.txs.InsertBatch(ctx, txs); err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}

	for i := range txs {
		s.publishEvent(ctx, amqp.NewTransactionEvent(amqp.ActionCreated, txs[i]))
	}

	return len(txs), nil
}

// DeleteTransaction removes a transaction and announces the deletion
// with a full snapshot, since consumers can no longer look it up. The
// removed transaction is returned so callers still see what was dropped.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.txs.DeleteTransaction(ctx, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}

	s.publishEvent(ctx, amqp.NewTransactionEvent(amqp.ActionDeleted, tx))

	return tx, nil
}

func (s *TransactionService) checkCategory(ctx context.Context, name string, kind core.Kind) error {
	ok, err := s.cats.CategoryExists(ctx, name, kind)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s (%s)", core.ErrUnknownCategory, name, kind)
	}
	return nil
}

func (s *TransactionService) publishEvent(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not configured, skipping event publish",
			"action", ev.Action,
			"transaction_id", ev.ID)
		return
	}

	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		// Don't fail the request - the transaction is saved locally
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", ev.Action,
			"transaction_id", ev.ID,
			"error", err)
	}
}

// Close closes the AMQP connection if one is configured.
func (s *TransactionService) Close() error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Close(); err != nil {
		return fmt.Errorf("close transaction service: %w", err)
	}
	return nil
}
