package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/recur"
)

// ruleRequest is the JSON body for creating or replacing a recurrence
// rule. Amounts follow the same decimal-or-cents convention as
// transactions.
type ruleRequest struct {
	Kind            string `json:"kind"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	AmountCents     int64  `json:"amount_cents"`
	Category        string `json:"category"`
	StartDate       string `json:"start_date"`
	Frequency       string `json:"frequency"`
	Interval        int    `json:"interval"`
	OccurrenceLimit int    `json:"occurrence_limit"`
	EndDate         string `json:"end_date"`
	Active          *bool  `json:"active"`
}

func (req ruleRequest) toRule() (core.RecurrenceRule, error) {
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.RecurrenceRule{}, err
	}

	var end core.Date
	if req.EndDate != "" {
		end, err = core.ParseDate(req.EndDate)
		if err != nil {
			return core.RecurrenceRule{}, err
		}
	}

	amount := core.Money{Cents: req.AmountCents}
	if req.Amount != "" {
		amount, err = core.ParseMoney(req.Amount)
		if err != nil {
			return core.RecurrenceRule{}, err
		}
	}

	interval := req.Interval
	if interval == 0 {
		interval = 1
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return core.RecurrenceRule{
		Kind:            kind,
		Description:     sanitizeInput(req.Description),
		Amount:          amount,
		Category:        sanitizeInput(req.Category),
		StartDate:       start,
		Frequency:       freq,
		Interval:        interval,
		OccurrenceLimit: req.OccurrenceLimit,
		EndDate:         end,
		Active:          active,
	}, nil
}

type ruleResponse struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Description     string `json:"description,omitempty"`
	Amount          string `json:"amount"`
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

func toRuleResponse(rule core.RecurrenceRule) ruleResponse {
	return ruleResponse{
		ID:              rule.ID,
		Kind:            string(rule.Kind),
		Description:     rule.Description,
		Amount:          rule.Amount.Decimal(),
		AmountCents:     rule.Amount.Cents,
		Category:        rule.Category,
		StartDate:       rule.StartDate.String(),
		Frequency:       string(rule.Frequency),
		Interval:        rule.Interval,
		OccurrenceLimit: rule.OccurrenceLimit,
		EndDate:         rule.EndDate.String(),
		LastProcessed:   rule.LastProcessed.String(),
		Active:          rule.Active,
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createRule(w, r)
	case http.MethodGet:
		s.listRules(w, r)
	default:
		respondMethodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	rule, err := req.toRule()
	if err != nil {
		respondError(w, r, err)
		return
	}
	rule.ID = uuid.NewString()

	if err := rule.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.checkRuleCategory(r, rule); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.backend.CreateRule(r.Context(), rule); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	rules, err := s.backend.ListRules(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := struct {
		Count int            `json:"count"`
		Rules []ruleResponse `json:"rules"`
	}{
		Count: len(rules),
		Rules: make([]ruleResponse, 0, len(rules)),
	}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, toRuleResponse(rule))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleRuleByID dispatches /rules/{id}, /rules/{id}/preview and
// /rules/{id}/materialize.
func (s *Server) handleRuleByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/rules/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		respondError(w, r, core.ErrNotFound)
		return
	}

	switch action {
	case "":
		s.ruleByID(w, r, id)
	case "preview":
		s.previewRule(w, r, id)
	case "materialize":
		s.materializeRule(w, r, id)
	default:
		respondError(w, r, core.ErrNotFound)
	}
}

func (s *Server) ruleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		rule, err := s.backend.GetRule(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toRuleResponse(rule))

	case http.MethodPut:
		s.updateRule(w, r, id)

	case http.MethodDelete:
		if err := s.backend.DisableRule(r.Context(), id); err != nil {
			respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		respondMethodNotAllowed(w, "GET, PUT, DELETE")
	}
}

// updateRule replaces the rule definition. The materialization watermark
// survives the update, so already generated occurrences are not redone.
func (s *Server) updateRule(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := s.backend.GetRule(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}

	rule, err := req.toRule()
	if err != nil {
		respondError(w, r, err)
		return
	}
	rule.ID = id
	rule.LastProcessed = existing.LastProcessed
	if req.Active == nil {
		rule.Active = existing.Active
	}

	if err := rule.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.checkRuleCategory(r, rule); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.backend.UpdateRule(r.Context(), rule); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) previewRule(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		respondMethodNotAllowed(w, "GET")
		return
	}

	win, err := parseWindow(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	occurrences, err := s.recurring.PreviewRule(r.Context(), id, win)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := struct {
		RuleID      string             `json:"rule_id"`
		Count       int                `json:"count"`
		Occurrences []recur.Occurrence `json:"occurrences"`
	}{
		RuleID:      id,
		Count:       len(occurrences),
		Occurrences: occurrences,
	}
	if resp.Occurrences == nil {
		resp.Occurrences = []recur.Occurrence{}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) materializeRule(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		respondMethodNotAllowed(w, "POST")
		return
	}

	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "invalid JSON body")
			return
		}
	}

	var win recur.Window
	var err error
	if req.From != "" {
		if win.From, err = core.ParseDate(req.From); err != nil {
			respondError(w, r, err)
			return
		}
	}
	if req.To != "" {
		if win.To, err = core.ParseDate(req.To); err != nil {
			respondError(w, r, err)
			return
		}
	} else {
		win.To = core.Today()
	}

	res, err := s.recurring.MaterializeRule(r.Context(), id, win)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if res.Persisted > 0 {
		s.invalidateAllReports()
	}

	respondJSON(w, http.StatusOK, struct {
		RuleID    string `json:"rule_id"`
		Persisted int    `json:"persisted"`
		Watermark string `json:"watermark"`
	}{
		RuleID:    id,
		Persisted: res.Persisted,
		Watermark: res.Watermark.String(),
	})
}

func parseWindow(r *http.Request) (recur.Window, error) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		return recur.Window{}, err
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		return recur.Window{}, err
	}
	return recur.Window{From: from, To: to}, nil
}

func (s *Server) checkRuleCategory(r *http.Request, rule core.RecurrenceRule) error {
	ok, err := s.backend.CategoryExists(r.Context(), rule.Category, rule.Kind)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s (%s)", core.ErrUnknownCategory, rule.Category, rule.Kind)
	}
	return nil
}
