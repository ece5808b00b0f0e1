package http

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
)

var exportHeader = []string{"id", "kind", "date", "description", "amount_cents", "category", "rule_id", "created_at"}

// handleExportCSV streams the ledger as CSV. With year and month
// parameters only that month is exported, otherwise everything.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	var (
		txs []core.Transaction
		err error
	)
	q := r.URL.Query()
	if q.Get("year") != "" || q.Get("month") != "" {
		year, month, perr := parseYearMonth(r)
		if perr != nil {
			respondBadRequest(w, perr.Error())
			return
		}
		txs, err = s.backend.ListTransactions(r.Context(), year, month)
	} else {
		txs, err = s.backend.ListAllTransactions(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return
	}
	for _, tx := range txs {
		record := []string{
			tx.ID,
			string(tx.Kind),
			tx.Date.String(),
			tx.Description,
			strconv.FormatInt(tx.Amount.Cents, 10),
			tx.Category,
			tx.RuleID,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return
		}
	}
	cw.Flush()
}

// handleImportCSV reads a CSV body and imports the rows all-or-nothing.
// The column layout is discovered from the header; kind, date, category
// and one of amount_cents or amount are required.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondMethodNotAllowed(w, "POST")
		return
	}

	txs, err := parseImportCSV(r.Body)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	imported, err := s.transactions.ImportTransactions(r.Context(), txs)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if imported > 0 {
		s.invalidateAllReports()
	}

	respondJSON(w, http.StatusOK, struct {
		Imported int `json:"imported"`
	}{Imported: imported})
}

func parseImportCSV(body io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(body)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %v", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{"kind", "date", "category"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing CSV column %q", required)
		}
	}
	_, hasCents := columns["amount_cents"]
	_, hasAmount := columns["amount"]
	if !hasCents && !hasAmount {
		return nil, fmt.Errorf(`missing CSV column "amount_cents" or "amount"`)
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var txs []core.Transaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}

		kind, err := core.ParseKind(field(record, "kind"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}

		date, err := core.ParseDate(field(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}

		var amount core.Money
		if cents := field(record, "amount_cents"); cents != "" {
			v, err := strconv.ParseInt(cents, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid amount_cents %q", line, cents)
			}
			amount = core.Money{Cents: v}
		} else {
			amount, err = core.ParseMoney(field(record, "amount"))
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", line, err)
			}
		}

		txs = append(txs, core.Transaction{
			Kind:        kind,
			Date:        date,
			Description: sanitizeInput(field(record, "description")),
			Amount:      amount,
			Category:    sanitizeInput(field(record, "category")),
		})
	}

	return txs, nil
}
