package http

import (
	"log/slog"
	"net/http"

	"tally/internal/core"
)

type monthlyReportResponse struct {
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	Income        string `json:"income"`
	IncomeCents   int64  `json:"income_cents"`
	Expenses      string `json:"expenses"`
	ExpensesCents int64  `json:"expenses_cents"`
	Net           string `json:"net"`
	NetCents      int64  `json:"net_cents"`
	Count         int    `json:"count"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	key := reportCacheKey(year, month)
	report, ok := s.monthlyCache.Get(key)
	if ok {
		slog.DebugContext(r.Context(), "Monthly report served from cache", "key", key)
	} else {
		report, err = s.backend.MonthlyReport(r.Context(), year, month)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.monthlyCache.Set(key, report)
	}

	respondJSON(w, http.StatusOK, monthlyReportResponse{
		Year:          report.Year,
		Month:         report.Month,
		Income:        report.Income.Decimal(),
		IncomeCents:   report.Income.Cents,
		Expenses:      report.Expenses.Decimal(),
		ExpensesCents: report.Expenses.Cents,
		Net:           report.Net.Decimal(),
		NetCents:      report.Net.Cents,
		Count:         report.Count,
	})
}

type categoryTotalResponse struct {
	Category   string `json:"category"`
	Kind       string `json:"kind"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	key := reportCacheKey(year, month)
	totals, ok := s.categoryCache.Get(key)
	if !ok {
		totals, err = s.backend.CategoryReport(r.Context(), year, month)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.categoryCache.Set(key, totals)
	}

	resp := struct {
		Year       int                     `json:"year"`
		Month      int                     `json:"month"`
		Categories []categoryTotalResponse `json:"categories"`
	}{
		Year:       year,
		Month:      month,
		Categories: make([]categoryTotalResponse, 0, len(totals)),
	}
	for _, ct := range totals {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Category:   ct.Category,
			Kind:       string(ct.Kind),
			Total:      ct.Total.Decimal(),
			TotalCents: ct.Total.Cents,
			Count:      ct.Count,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

type weekdayTotalResponse struct {
	Weekday    string `json:"weekday"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

func (s *Server) handleWeekdayReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	key := reportCacheKey(year, month)
	totals, ok := s.weekdayCache.Get(key)
	if !ok {
		totals, err = s.backend.WeekdayReport(r.Context(), year, month)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.weekdayCache.Set(key, totals)
	}

	resp := struct {
		Year     int                    `json:"year"`
		Month    int                    `json:"month"`
		Weekdays []weekdayTotalResponse `json:"weekdays"`
	}{
		Year:     year,
		Month:    month,
		Weekdays: make([]weekdayTotalResponse, 0, len(totals)),
	}
	for _, wt := range totals {
		resp.Weekdays = append(resp.Weekdays, weekdayTotalResponse{
			Weekday:    wt.Weekday.String(),
			Total:      wt.Total.Decimal(),
			TotalCents: wt.Total.Cents,
			Count:      wt.Count,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	var kind core.Kind
	if v := r.URL.Query().Get("kind"); v != "" {
		parsed, err := core.ParseKind(v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		kind = parsed
	}

	categories, err := s.backend.ListCategories(r.Context(), kind)
	if err != nil {
		respondError(w, r, err)
		return
	}

	type categoryResponse struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}

	resp := struct {
		Count      int                `json:"count"`
		Categories []categoryResponse `json:"categories"`
	}{
		Count:      len(categories),
		Categories: make([]categoryResponse, 0, len(categories)),
	}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, categoryResponse{
			Name: c.Name,
			Kind: string(c.Kind),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}
