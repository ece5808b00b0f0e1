// Package worker maintains the CSV ledger mirror that shadows the
// SQLite backend. Events arrive over AMQP; a periodic sweep picks up
// rows whose events were lost.
package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
)

// ExportStore is the slice of the storage layer the mirror worker
// needs. Only the SQLite backend tracks export state.
type ExportStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

var mirrorHeader = []string{"id", "action", "kind", "date", "amount_cents", "category", "description", "recorded_at"}

// MirrorWorker appends transaction history to a CSV file and keeps the
// export state in storage in step with it.
type MirrorWorker struct {
	store      ExportStore
	mirrorPath string
	batchSize  int

	mu sync.Mutex
}

func NewMirrorWorker(store ExportStore, mirrorPath string, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		store:      store,
		mirrorPath: mirrorPath,
		batchSize:  batchSize,
	}
}

// HandleEvent processes a single transaction event from AMQP.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"action", ev.Action,
		"transaction_id", ev.ID)

	switch ev.Action {
	case amqp.ActionCreated:
		return w.mirrorCreated(ctx, ev.ID)
	case amqp.ActionDeleted:
		return w.mirrorDeleted(ctx, ev)
	default:
		return fmt.Errorf("unknown event action: %s", ev.Action)
	}
}

// mirrorCreated fetches the stored row so the mirror reflects what was
// actually persisted, not what the event claims.
func (w *MirrorWorker) mirrorCreated(ctx context.Context, id string) error {
	tx, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got here. The delete event will
			// record the final state, so drop this one.
			slog.WarnContext(ctx, "Transaction gone before mirroring, skipping", "id", id)
			return nil
		}
		return fmt.Errorf("get transaction %s: %w", id, err)
	}

	if err := w.appendRows([][]string{transactionRow(tx)}); err != nil {
		if markErr := w.store.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("mirror transaction %s: %w", id, err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		// The row is in the mirror; the pending sweep may write it
		// again, which is harmless for an append-only history.
		slog.ErrorContext(ctx, "Failed to mark transaction exported", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction", "id", id)
	return nil
}

// mirrorDeleted records the deletion from the event snapshot. The row
// is already gone from storage.
func (w *MirrorWorker) mirrorDeleted(ctx context.Context, ev *amqp.TransactionEvent) error {
	row := []string{
		ev.ID,
		string(amqp.ActionDeleted),
		ev.Kind,
		ev.Date,
		strconv.FormatInt(ev.AmountCents, 10),
		ev.Category,
		ev.Description,
		time.Now().UTC().Format(time.RFC3339),
	}

	if err := w.appendRows([][]string{row}); err != nil {
		return fmt.Errorf("mirror deletion %s: %w", ev.ID, err)
	}

	slog.InfoContext(ctx, "Mirrored transaction deletion", "id", ev.ID)
	return nil
}

// ProcessPendingExports mirrors transactions whose events never made
// it, as a backup for lost AMQP messages.
func (w *MirrorWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, tx := range pending {
		if err := w.mirrorPending(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction",
				"id", tx.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck mirrors any backlog left over from downtime before the
// consumer starts. It pulls a larger batch than the periodic sweep.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, tx := range pending {
		if err := w.mirrorPending(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"id", tx.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup mirror check completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)

	return nil
}

func (w *MirrorWorker) mirrorPending(ctx context.Context, tx core.Transaction) error {
	if err := w.appendRows([][]string{transactionRow(tx)}); err != nil {
		if markErr := w.store.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return err
	}

	if err := w.store.MarkExported(ctx, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark transaction exported", "id", tx.ID, "error", err)
	}
	return nil
}

// appendRows appends rows to the mirror file, writing the header first
// when the file is new or empty.
func (w *MirrorWorker) appendRows(rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.mirrorPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open mirror file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat mirror file: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(mirrorHeader); err != nil {
			return fmt.Errorf("write mirror header: %w", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write mirror row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush mirror file: %w", err)
	}
	return nil
}

func transactionRow(tx core.Transaction) []string {
	return []string{
		tx.ID,
		string(amqp.ActionCreated),
		string(tx.Kind),
		tx.Date.String(),
		strconv.FormatInt(tx.Amount.Cents, 10),
		tx.Category,
		tx.Description,
		time.Now().UTC().Format(time.RFC3339),
	}
}
