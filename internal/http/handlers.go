package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	body := map[string]any{"error": msg}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}

// writeServiceError maps domain errors to statuses: validation failures name
// the offending field with a 400, everything else is a logged 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, err.Error(), verr.Field)
		return
	}
	s.logger.ErrorContext(r.Context(), "Request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error", "")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func parseDateParam(r *http.Request, name string) (core.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, core.NewValidationError(name, err.Error())
	}
	return d, nil
}

// --- transactions ---

type transactionDTO struct {
	ID            int64   `json:"id"`
	Date          string  `json:"date"`
	Type          string  `json:"type"`
	MajorCategory string  `json:"major_category"`
	SubCategory   string  `json:"sub_category"`
	Category      string  `json:"category,omitempty"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Account       string  `json:"account,omitempty"`
	Remarks       string  `json:"remarks,omitempty"`
	Source        string  `json:"source,omitempty"`
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		Type:          string(tx.Direction),
		MajorCategory: tx.MajorCategory,
		SubCategory:   tx.SubCategory,
		Category:      tx.Category,
		Amount:        tx.Amount.InexactFloat64(),
		Description:   tx.Description,
		Account:       tx.Account,
		Remarks:       tx.Remarks,
		Source:        tx.Source,
	}
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 100
	}
	if perPage > 1000 {
		perPage = 1000
	}

	items, total, err := s.svc.Transactions.Query(r.Context(), ledger.TransactionFilter{
		Start:     start,
		End:       end,
		Direction: q.Get("type"),
		Search:    q.Get("search"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	dtos := make([]transactionDTO, 0, len(items))
	for _, tx := range items {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    dtos,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body", "")
		return
	}

	// The body may be a single object or an array of them.
	var inputs []services.TransactionInput
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
			return
		}
	} else {
		var single services.TransactionInput
		if err := json.Unmarshal(trimmed, &single); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
			return
		}
		inputs = append(inputs, single)
	}

	created, err := s.svc.Transactions.CreateBulk(r.Context(), inputs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(created))
	for _, tx := range created {
		items = append(items, map[string]any{
			"id":     tx.ID,
			"date":   tx.Date.String(),
			"amount": tx.Amount.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"created": len(items),
		"items":   items,
	})
}

func (s *Server) handleTransactionGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	tx, err := s.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (s *Server) handleTransactionPatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	var patch services.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	updated, err := s.svc.Transactions.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*updated))
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	deleted, err := s.svc.Transactions.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionExport(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items, _, err := s.svc.Transactions.Query(r.Context(), ledger.TransactionFilter{Start: start, End: end})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	startLabel := "all"
	if !start.IsZero() {
		startLabel = start.String()
	}
	endLabel := "all"
	if !end.IsZero() {
		endLabel = end.String()
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="export_%s_%s.csv"`, startLabel, endLabel))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if r.URL.Query().Get("kind") == "transactions" {
		_ = cw.Write([]string{"id", "date", "type", "major_category", "sub_category", "amount", "description"})
		for _, tx := range items {
			_ = cw.Write([]string{
				strconv.FormatInt(tx.ID, 10),
				tx.Date.String(),
				string(tx.Direction),
				tx.MajorCategory,
				tx.SubCategory,
				tx.Amount.String(),
				tx.Description,
			})
		}
		return
	}

	// Summary export: one row per type/major/sub combination.
	type key struct{ typ, major, sub string }
	sums := make(map[key]float64)
	var order []key
	for _, tx := range items {
		k := key{typ: string(tx.Direction), major: tx.MajorCategory, sub: tx.SubCategory}
		if k.typ == "" {
			k.typ = "unknown"
		}
		if k.major == "" {
			k.major = "(No major)"
		}
		if k.sub == "" {
			k.sub = "(No sub)"
		}
		if _, seen := sums[k]; !seen {
			order = append(order, k)
		}
		sums[k] += tx.Amount.InexactFloat64()
	}
	_ = cw.Write([]string{"type", "major", "sub", "amount"})
	for _, k := range order {
		_ = cw.Write([]string{k.typ, k.major, k.sub, strconv.FormatFloat(sums[k], 'f', -1, 64)})
	}
}

// --- aggregations ---

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	summary, err := s.svc.Summary.Summarize(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	byMajor := make(map[string]any, len(summary.ByMajor))
	for major, ms := range summary.ByMajor {
		subs := make(map[string]float64, len(ms.Subs))
		for sub, amount := range ms.Subs {
			subs[sub] = amount.InexactFloat64()
		}
		byMajor[major] = map[string]any{
			"total":          ms.Total.InexactFloat64(),
			"sub_categories": subs,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    summary.Total.InexactFloat64(),
		"by_major": byMajor,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	entries, err := s.svc.Transactions.Daily(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		txs := make([]transactionDTO, 0, len(entry.Transactions))
		for _, tx := range entry.Transactions {
			txs = append(txs, toTransactionDTO(tx))
		}
		out = append(out, map[string]any{
			"date":         entry.Date.String(),
			"income":       entry.Income.InexactFloat64(),
			"expense":      entry.Expense.InexactFloat64(),
			"transactions": txs,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	if year == 0 {
		year = now.Year()
	}
	month, _ := strconv.Atoi(q.Get("month"))
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month", "month")
		return
	}

	view, err := s.svc.Transactions.Calendar(r.Context(), year, month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	days := make(map[string]any, len(view.Days))
	for day, cell := range view.Days {
		days[day] = map[string]any{
			"income":  cell.Income.InexactFloat64(),
			"expense": cell.Expense.InexactFloat64(),
			"count":   cell.Count,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  view.Year,
		"month": view.Month,
		"days":  days,
	})
}

func (s *Server) handleCategoriesInUse(w http.ResponseWriter, r *http.Request) {
	tree, err := s.svc.Transactions.CategoriesInUse(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	majors := tree.Majors
	if majors == nil {
		majors = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"majors": majors,
		"subs":   tree.Subs,
	})
}

// --- settings vocabulary ---

type vocabularyDTO struct {
	Majors []string `json:"majors"`
	Subs   []string `json:"subs"`
}

func (s *Server) handleSettingsCategoriesGet(w http.ResponseWriter, r *http.Request) {
	majors, subs, err := s.svc.Categories.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if majors == nil {
		majors = []string{}
	}
	if subs == nil {
		subs = []string{}
	}
	writeJSON(w, http.StatusOK, vocabularyDTO{Majors: majors, Subs: subs})
}

func (s *Server) handleSettingsCategoriesPut(w http.ResponseWriter, r *http.Request) {
	var in vocabularyDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	if err := s.svc.Categories.Replace(r.Context(), in.Majors, in.Subs); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- fixed expenses ---

type fixedExpenseDTO struct {
	ID            int64   `json:"id"`
	MajorCategory string  `json:"major_category"`
	SubCategory   string  `json:"sub_category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	DayOfMonth    int     `json:"day_of_month"`
	Active        bool    `json:"active"`
}

func toFixedExpenseDTO(fe core.FixedExpense) fixedExpenseDTO {
	return fixedExpenseDTO{
		ID:            fe.ID,
		MajorCategory: fe.MajorCategory,
		SubCategory:   fe.SubCategory,
		Description:   fe.Description,
		Amount:        fe.Amount.InexactFloat64(),
		StartDate:     fe.StartDate.String(),
		EndDate:       fe.EndDate.String(),
		DayOfMonth:    fe.DayOfMonth,
		Active:        fe.Active,
	}
}

func (s *Server) handleFixedExpenseList(w http.ResponseWriter, r *http.Request) {
	defs, err := s.svc.FixedExpenses.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]fixedExpenseDTO, 0, len(defs))
	for _, fe := range defs {
		out = append(out, toFixedExpenseDTO(fe))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFixedExpenseCreate(w http.ResponseWriter, r *http.Request) {
	var in services.FixedExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	created, err := s.svc.FixedExpenses.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFixedExpenseDTO(created))
}

func (s *Server) handleFixedExpensePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	var patch services.FixedExpensePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	updated, err := s.svc.FixedExpenses.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	writeJSON(w, http.StatusOK, toFixedExpenseDTO(*updated))
}

func (s *Server) handleFixedExpenseDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	deleted, err := s.svc.FixedExpenses.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- savings ---

type savingDTO struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Kind               string    `json:"kind"`
	InitialBalance     float64   `json:"initial_balance"`
	ContributionAmount float64   `json:"contribution_amount"`
	StartDate          core.Date `json:"start_date"`
	EndDate            core.Date `json:"end_date"`
	DayOfMonth         int       `json:"day_of_month"`
	Frequency          string    `json:"frequency"`
	Withdrawn          bool      `json:"withdrawn"`
	Active             bool      `json:"active"`
}

func toSavingDTO(sv core.Saving) savingDTO {
	return savingDTO{
		ID:                 sv.ID,
		Name:               sv.Name,
		Kind:               sv.Kind,
		InitialBalance:     sv.InitialBalance.InexactFloat64(),
		ContributionAmount: sv.ContributionAmount.InexactFloat64(),
		StartDate:          sv.StartDate,
		EndDate:            sv.EndDate,
		DayOfMonth:         sv.DayOfMonth,
		Frequency:          sv.Frequency,
		Withdrawn:          sv.Withdrawn,
		Active:             sv.Active,
	}
}

func (s *Server) handleSavingList(w http.ResponseWriter, r *http.Request) {
	savings, err := s.svc.Savings.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]savingDTO, 0, len(savings))
	for _, sv := range savings {
		out = append(out, toSavingDTO(sv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSavingCreate(w http.ResponseWriter, r *http.Request) {
	var in services.SavingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	created, err := s.svc.Savings.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingDTO(created))
}

func (s *Server) handleSavingPatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	var patch services.SavingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	updated, err := s.svc.Savings.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	writeJSON(w, http.StatusOK, toSavingDTO(*updated))
}

func (s *Server) handleSavingDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	deleted, err := s.svc.Savings.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSavingsForecast(w http.ResponseWriter, r *http.Request) {
	asOf := core.NewDate(time.Now().Year(), int(time.Now().Month()), time.Now().Day())
	if raw := r.URL.Query().Get("on"); raw != "" {
		parsed, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "on")
			return
		}
		asOf = parsed
	}

	forecast, err := s.svc.Savings.Forecast(r.Context(), asOf)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(forecast.Items))
	for _, item := range forecast.Items {
		items = append(items, map[string]any{
			"id":                item.Saving.ID,
			"name":              item.Saving.Name,
			"kind":              item.Saving.Kind,
			"withdrawn":         item.Saving.Withdrawn,
			"predicted_balance": item.PredictedBalance.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"as_of": asOf.String(),
		"items": items,
		"total": forecast.Total.InexactFloat64(),
	})
}

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// A cheap store round trip proves the backend is reachable.
	_, _, err := s.svc.Transactions.Query(r.Context(), ledger.TransactionFilter{Page: 1, PerPage: 1})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
