package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
)

// transactionRequest is the JSON body for creating a transaction. The
// amount can be given either as a decimal string ("12.34", comma
// accepted) or directly in cents.
type transactionRequest struct {
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.Transaction{}, err
	}

	date := core.Today()
	if req.Date != "" {
		date, err = core.ParseDate(req.Date)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	amount := core.Money{Cents: req.AmountCents}
	if req.Amount != "" {
		amount, err = core.ParseMoney(req.Amount)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	return core.Transaction{
		Kind:        kind,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
	}, nil
}

type transactionResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	RuleID      string `json:"rule_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      tx.Amount.Decimal(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		RuleID:      tx.RuleID,
		CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type transactionListResponse struct {
	Year         int                   `json:"year"`
	Month        int                   `json:"month"`
	Count        int                   `json:"count"`
	Transactions []transactionResponse `json:"transactions"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodGet:
		s.listTransactions(w, r)
	default:
		respondMethodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateReports(created.Date)
	respondJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	txs, err := s.backend.ListTransactions(r.Context(), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := transactionListResponse{
		Year:         year,
		Month:        month,
		Count:        len(txs),
		Transactions: make([]transactionResponse, 0, len(txs)),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/transactions/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, r, core.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.backend.GetTransaction(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toTransactionResponse(tx))

	case http.MethodDelete:
		deleted, err := s.transactions.DeleteTransaction(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.invalidateReports(deleted.Date)
		w.WriteHeader(http.StatusNoContent)

	default:
		respondMethodNotAllowed(w, "GET, DELETE")
	}
}
