package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/services"
	"tally/internal/store/jsonfile"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	txService := services.NewTransactionService(st, st, nil)
	recurService := services.NewRecurringService(st, st, 2)
	srv := NewServer(":0", st, txService, recurService)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Body.String(); got != "ready" {
		t.Errorf("readyz body = %q, want %q", got, "ready")
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"kind":        "expense",
		"date":        "2024-03-15",
		"amount":      "24.50",
		"category":    "Groceries",
		"description": "weekly shop",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}

	created := decodeBody[transactionResponse](t, rr)
	if created.ID == "" {
		t.Error("created transaction has no ID")
	}
	if created.AmountCents != 2450 {
		t.Errorf("amount_cents = %d, want 2450", created.AmountCents)
	}
	if created.Amount != "24.50" {
		t.Errorf("amount = %q, want %q", created.Amount, "24.50")
	}
	if created.Date != "2024-03-15" {
		t.Errorf("date = %q, want %q", created.Date, "2024-03-15")
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?year=2024&month=3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	list := decodeBody[transactionListResponse](t, rr)
	if list.Count != 1 {
		t.Fatalf("list count = %d, want 1", list.Count)
	}
	if list.Transactions[0].ID != created.ID {
		t.Errorf("listed ID = %q, want %q", list.Transactions[0].ID, created.ID)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?year=2024&month=4", nil)
	list = decodeBody[transactionListResponse](t, rr)
	if list.Count != 0 {
		t.Errorf("other month count = %d, want 0", list.Count)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "invalid JSON",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown kind",
			body: map[string]any{
				"kind": "transfer", "date": "2024-03-15",
				"amount": "10.00", "category": "Groceries",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown category",
			body: map[string]any{
				"kind": "expense", "date": "2024-03-15",
				"amount": "10.00", "category": "Yachts",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "category of the other kind",
			body: map[string]any{
				"kind": "expense", "date": "2024-03-15",
				"amount": "10.00", "category": "Salary",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "zero amount",
			body: map[string]any{
				"kind": "expense", "date": "2024-03-15",
				"amount": "0", "category": "Groceries",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "bad date",
			body: map[string]any{
				"kind": "expense", "date": "15/03/2024",
				"amount": "10.00", "category": "Groceries",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestTransactionGetAndDelete(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"kind": "income", "date": "2024-06-01",
		"amount": "3000.00", "category": "Salary",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	created := decodeBody[transactionResponse](t, rr)

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	got := decodeBody[transactionResponse](t, rr)
	if got.Kind != "income" || got.AmountCents != 300000 {
		t.Errorf("got %+v, want income of 300000 cents", got)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRulePreviewAndMaterialize(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/rules", map[string]any{
		"kind":        "expense",
		"description": "rent",
		"amount":      "1200.00",
		"category":    "Housing",
		"start_date":  "2024-01-31",
		"frequency":   "monthly",
		"end_date":    "2024-12-31",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d, body %s", rr.Code, rr.Body.String())
	}
	rule := decodeBody[ruleResponse](t, rr)
	if rule.Interval != 1 {
		t.Errorf("interval defaulted to %d, want 1", rule.Interval)
	}
	if !rule.Active {
		t.Error("rule should default to active")
	}

	// End of month anchors clamp: Jan 31 -> Feb 29 (leap) -> Mar 31 -> Apr 30.
	rr = doJSON(t, srv, http.MethodGet, "/rules/"+rule.ID+"/preview?from=2024-01-01&to=2024-04-30", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body %s", rr.Code, rr.Body.String())
	}
	preview := decodeBody[struct {
		Count       int `json:"count"`
		Occurrences []struct {
			Date     string `json:"date"`
			Sequence int    `json:"sequence"`
		} `json:"occurrences"`
	}](t, rr)

	wantDates := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	if preview.Count != len(wantDates) {
		t.Fatalf("preview count = %d, want %d", preview.Count, len(wantDates))
	}
	for i, want := range wantDates {
		if preview.Occurrences[i].Date != want {
			t.Errorf("occurrence %d = %s, want %s", i, preview.Occurrences[i].Date, want)
		}
	}

	rr = doJSON(t, srv, http.MethodPost, "/rules/"+rule.ID+"/materialize", map[string]any{
		"to": "2024-03-31",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("materialize status = %d, body %s", rr.Code, rr.Body.String())
	}
	result := decodeBody[struct {
		Persisted int    `json:"persisted"`
		Watermark string `json:"watermark"`
	}](t, rr)
	if result.Persisted != 3 {
		t.Errorf("persisted = %d, want 3", result.Persisted)
	}
	if result.Watermark != "2024-03-31" {
		t.Errorf("watermark = %q, want %q", result.Watermark, "2024-03-31")
	}

	// Same window again: the watermark makes the run a no-op.
	rr = doJSON(t, srv, http.MethodPost, "/rules/"+rule.ID+"/materialize", map[string]any{
		"to": "2024-03-31",
	})
	result = decodeBody[struct {
		Persisted int    `json:"persisted"`
		Watermark string `json:"watermark"`
	}](t, rr)
	if result.Persisted != 0 {
		t.Errorf("second run persisted = %d, want 0", result.Persisted)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?year=2024&month=2", nil)
	list := decodeBody[transactionListResponse](t, rr)
	if list.Count != 1 {
		t.Fatalf("february count = %d, want 1", list.Count)
	}
	if list.Transactions[0].RuleID != rule.ID {
		t.Errorf("rule_id = %q, want %q", list.Transactions[0].RuleID, rule.ID)
	}
	if list.Transactions[0].Date != "2024-02-29" {
		t.Errorf("february date = %q, want 2024-02-29", list.Transactions[0].Date)
	}
}

func TestRuleUpdatePreservesWatermark(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/rules", map[string]any{
		"kind":       "income",
		"amount":     "3000.00",
		"category":   "Salary",
		"start_date": "2024-01-01",
		"frequency":  "monthly",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d, body %s", rr.Code, rr.Body.String())
	}
	rule := decodeBody[ruleResponse](t, rr)

	rr = doJSON(t, srv, http.MethodPost, "/rules/"+rule.ID+"/materialize", map[string]any{
		"to": "2024-02-01",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("materialize status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/rules/"+rule.ID, map[string]any{
		"kind":       "income",
		"amount":     "3200.00",
		"category":   "Salary",
		"start_date": "2024-01-01",
		"frequency":  "monthly",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[ruleResponse](t, rr)
	if updated.AmountCents != 320000 {
		t.Errorf("updated amount_cents = %d, want 320000", updated.AmountCents)
	}
	if updated.LastProcessed != "2024-02-01" {
		t.Errorf("last_processed = %q, want 2024-02-01", updated.LastProcessed)
	}

	// Materializing the same window after the update must stay a no-op.
	rr = doJSON(t, srv, http.MethodPost, "/rules/"+rule.ID+"/materialize", map[string]any{
		"to": "2024-02-01",
	})
	result := decodeBody[struct {
		Persisted int `json:"persisted"`
	}](t, rr)
	if result.Persisted != 0 {
		t.Errorf("persisted after update = %d, want 0", result.Persisted)
	}
}

func TestRuleDisable(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/rules", map[string]any{
		"kind":       "expense",
		"amount":     "9.99",
		"category":   "Subscriptions",
		"start_date": "2024-01-01",
		"frequency":  "monthly",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create rule status = %d", rr.Code)
	}
	rule := decodeBody[ruleResponse](t, rr)

	rr = doJSON(t, srv, http.MethodDelete, "/rules/"+rule.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("disable status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/rules?active=true", nil)
	active := decodeBody[struct {
		Count int `json:"count"`
	}](t, rr)
	if active.Count != 0 {
		t.Errorf("active rules = %d, want 0", active.Count)
	}

	rr = doJSON(t, srv, http.MethodGet, "/rules", nil)
	all := decodeBody[struct {
		Count int            `json:"count"`
		Rules []ruleResponse `json:"rules"`
	}](t, rr)
	if all.Count != 1 {
		t.Fatalf("all rules = %d, want 1", all.Count)
	}
	if all.Rules[0].Active {
		t.Error("rule should be inactive after disable")
	}

	// A disabled rule refuses to materialize.
	rr = doJSON(t, srv, http.MethodPost, "/rules/"+rule.ID+"/materialize", map[string]any{
		"to": "2024-06-01",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("materialize disabled rule status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestRuleValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "unknown frequency",
			body: map[string]any{
				"kind": "expense", "amount": "10.00", "category": "Housing",
				"start_date": "2024-01-01", "frequency": "fortnightly",
			},
		},
		{
			name: "end before start",
			body: map[string]any{
				"kind": "expense", "amount": "10.00", "category": "Housing",
				"start_date": "2024-06-01", "frequency": "monthly",
				"end_date": "2024-01-01",
			},
		},
		{
			name: "unknown category",
			body: map[string]any{
				"kind": "expense", "amount": "10.00", "category": "Yachts",
				"start_date": "2024-01-01", "frequency": "monthly",
			},
		},
		{
			name: "negative occurrence limit",
			body: map[string]any{
				"kind": "expense", "amount": "10.00", "category": "Housing",
				"start_date": "2024-01-01", "frequency": "monthly",
				"occurrence_limit": -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/rules", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, http.StatusUnprocessableEntity, rr.Body.String())
			}
		})
	}
}

func TestMonthlyReportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]any{
		{"kind": "income", "date": "2024-05-01", "amount": "3000.00", "category": "Salary"},
		{"kind": "expense", "date": "2024-05-02", "amount": "1200.00", "category": "Housing"},
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/reports/monthly?year=2024&month=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d", rr.Code)
	}
	report := decodeBody[monthlyReportResponse](t, rr)
	if report.IncomeCents != 300000 {
		t.Errorf("income_cents = %d, want 300000", report.IncomeCents)
	}
	if report.ExpensesCents != 120000 {
		t.Errorf("expenses_cents = %d, want 120000", report.ExpensesCents)
	}
	if report.NetCents != 180000 {
		t.Errorf("net_cents = %d, want 180000", report.NetCents)
	}
	if report.Count != 2 {
		t.Errorf("count = %d, want 2", report.Count)
	}

	// A write in the same month must invalidate the cached report.
	if rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"kind": "expense", "date": "2024-05-10", "amount": "100.00", "category": "Groceries",
	}); rr.Code != http.StatusCreated {
		t.Fatalf("second seed status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/reports/monthly?year=2024&month=5", nil)
	report = decodeBody[monthlyReportResponse](t, rr)
	if report.Count != 3 {
		t.Errorf("count after write = %d, want 3", report.Count)
	}
	if report.ExpensesCents != 130000 {
		t.Errorf("expenses_cents after write = %d, want 130000", report.ExpensesCents)
	}
}

func TestCategoryAndWeekdayReports(t *testing.T) {
	srv := newTestServer(t)

	// 2024-05-06 is a Monday.
	for _, body := range []map[string]any{
		{"kind": "expense", "date": "2024-05-06", "amount": "20.00", "category": "Groceries"},
		{"kind": "expense", "date": "2024-05-06", "amount": "15.50", "category": "Groceries"},
		{"kind": "expense", "date": "2024-05-07", "amount": "40.00", "category": "Dining"},
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/reports/categories?year=2024&month=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("category report status = %d", rr.Code)
	}
	catReport := decodeBody[struct {
		Categories []categoryTotalResponse `json:"categories"`
	}](t, rr)
	if len(catReport.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(catReport.Categories))
	}
	if catReport.Categories[0].Category != "Dining" || catReport.Categories[0].TotalCents != 4000 {
		t.Errorf("top category = %+v, want Dining with 4000 cents", catReport.Categories[0])
	}
	if catReport.Categories[1].Category != "Groceries" || catReport.Categories[1].TotalCents != 3550 {
		t.Errorf("second category = %+v, want Groceries with 3550 cents", catReport.Categories[1])
	}

	rr = doJSON(t, srv, http.MethodGet, "/reports/weekdays?year=2024&month=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("weekday report status = %d", rr.Code)
	}
	weekReport := decodeBody[struct {
		Weekdays []weekdayTotalResponse `json:"weekdays"`
	}](t, rr)
	if len(weekReport.Weekdays) != 7 {
		t.Fatalf("weekdays = %d, want 7", len(weekReport.Weekdays))
	}
	if weekReport.Weekdays[1].Weekday != "Monday" || weekReport.Weekdays[1].TotalCents != 3550 {
		t.Errorf("monday = %+v, want 3550 cents", weekReport.Weekdays[1])
	}
	if weekReport.Weekdays[0].Count != 0 {
		t.Errorf("sunday count = %d, want 0", weekReport.Weekdays[0].Count)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("categories status = %d", rr.Code)
	}
	all := decodeBody[struct {
		Count int `json:"count"`
	}](t, rr)
	if all.Count != 17 {
		t.Errorf("all categories = %d, want 17", all.Count)
	}

	rr = doJSON(t, srv, http.MethodGet, "/categories?kind=income", nil)
	income := decodeBody[struct {
		Count      int `json:"count"`
		Categories []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"categories"`
	}](t, rr)
	if income.Count != 5 {
		t.Errorf("income categories = %d, want 5", income.Count)
	}
	for _, c := range income.Categories {
		if c.Kind != "income" {
			t.Errorf("category %s has kind %s, want income", c.Name, c.Kind)
		}
	}

	rr = doJSON(t, srv, http.MethodGet, "/categories?kind=other", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad kind status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]any{
		{"kind": "expense", "date": "2024-07-01", "amount": "12.34", "category": "Groceries", "description": "fruit, veg"},
		{"kind": "income", "date": "2024-07-05", "amount": "250.00", "category": "Freelance"},
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/transactions/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("export content type = %q, want text/csv", ct)
	}

	records, err := csv.NewReader(bytes.NewReader(rr.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse exported CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("exported records = %d, want header plus 2 rows", len(records))
	}

	// Importing the export into a fresh server reproduces the ledger.
	other := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/transactions/import", bytes.NewReader(rr.Body.Bytes()))
	req.Header.Set("Content-Type", "text/csv")
	imp := httptest.NewRecorder()
	other.Handler.ServeHTTP(imp, req)
	if imp.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", imp.Code, imp.Body.String())
	}
	result := decodeBody[struct {
		Imported int `json:"imported"`
	}](t, imp)
	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}

	rr = doJSON(t, other, http.MethodGet, "/transactions?year=2024&month=7", nil)
	list := decodeBody[transactionListResponse](t, rr)
	if list.Count != 2 {
		t.Errorf("imported ledger count = %d, want 2", list.Count)
	}
}

func TestImportRejectsBadRow(t *testing.T) {
	srv := newTestServer(t)

	csvBody := "kind,date,amount_cents,category\n" +
		"expense,2024-07-01,1234,Groceries\n" +
		"expense,2024-07-02,1000,Yachts\n"

	req := httptest.NewRequest(http.MethodPost, "/transactions/import", strings.NewReader(csvBody))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("import status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}

	// Nothing from the batch may survive a rejected row.
	list := decodeBody[transactionListResponse](t, doJSON(t, srv, http.MethodGet, "/transactions?year=2024&month=7", nil))
	if list.Count != 0 {
		t.Errorf("count after failed import = %d, want 0", list.Count)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPut, "/transactions", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if allow := rr.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow header = %q, want %q", allow, "GET, POST")
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t)

	// httptest requests share one client address, so the limiter sees a
	// single client hammering the API.
	var last *httptest.ResponseRecorder
	for i := 0; i < maxRequestsPerMinute+1; i++ {
		last = doJSON(t, srv, http.MethodPost, "/transactions", "{not json")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after %d requests = %d, want %d", maxRequestsPerMinute+1, last.Code, http.StatusTooManyRequests)
	}
	if retry := last.Header().Get("Retry-After"); retry != "60" {
		t.Errorf("Retry-After = %q, want %q", retry, "60")
	}

	// Reads stay unthrottled.
	rr := doJSON(t, srv, http.MethodGet, "/transactions?year=2024&month=1", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("read status = %d, want %d", rr.Code, http.StatusOK)
	}
}
