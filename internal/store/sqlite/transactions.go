package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

const txColumns = "id, kind, date, description, amount_cents, category, rule_id, created_at"

func (s *Store) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, date, description, amount_cents, category, rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Kind), tx.Date.String(), tx.Description, tx.Amount.Cents,
		tx.Category, tx.RuleID, tx.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertBatch writes every transaction inside one database
// transaction, so a failure leaves nothing behind.
func (s *Store) InsertBatch(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (id, kind, date, description, amount_cents, category, rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			tx.ID, string(tx.Kind), tx.Date.String(), tx.Description, tx.Amount.Cents,
			tx.Category, tx.RuleID, tx.CreatedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from, to := monthRange(year, month)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE date >= ? AND date < ?
		ORDER BY date, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) ListAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, id)
	}
	return nil
}

// ListPendingExport returns up to limit transactions not yet written to
// the ledger mirror, oldest first.
func (s *Store) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE export_state = 'pending'
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) MarkExported(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = 'exported' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

func (s *Store) MarkExportError(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		kind      string
		date      string
		createdAt string
	)
	if err := row.Scan(&tx.ID, &kind, &date, &tx.Description, &tx.Amount.Cents,
		&tx.Category, &tx.RuleID, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date: %w", err)
	}
	tx.Date = d
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		tx.CreatedAt = ts
	}
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// monthRange returns the half-open [first day, first day of next month)
// date strings for a month. Stored dates sort lexicographically.
func monthRange(year, month int) (string, string) {
	start := core.NewDate(year, month, 1)
	return start.String(), start.AddMonths(1).String()
}
