package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"moneycal/internal/ledger/memory"
	"moneycal/internal/log"
	"moneycal/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	logger := log.New(slog.LevelError, "test")
	return New("127.0.0.1:0", Services{
		Transactions:  services.NewTransactionService(store, nil, logger),
		FixedExpenses: services.NewFixedExpenseService(store, nil, logger),
		Savings:       services.NewSavingsService(store, logger),
		Summary:       services.NewSummaryService(store, logger),
		Categories:    services.NewCategoryService(store, logger),
	}, logger, 1000)
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTransactionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", `[
		{"date":"2026-01-10","type":"수입","amount":3000000,"major_category":"급여","sub_category":"본봉","description":"1월 급여"},
		{"date":"2026-01-15","type":"지출","amount":12000,"major_category":"식비","sub_category":"점심","description":"회사 근처 식당"}
	]`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["created"].(float64) != 2 {
		t.Fatalf("created count: %v", created["created"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?start=2026-01-01&end=2026-01-31&type=expense&search=식당", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	list := decodeBody(t, rec)
	if list["total"].(float64) != 1 {
		t.Fatalf("filtered total: %v", list["total"])
	}
	items := list["items"].([]any)
	first := items[0].(map[string]any)
	if first["major_category"] != "식비" {
		t.Errorf("major: %v", first["major_category"])
	}
	id := int64(first["id"].(float64))

	rec = doJSON(t, srv, http.MethodPatch, "/api/transactions/"+strconv.FormatInt(id, 10), `{"amount":20000,"description":"업데이트"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	patched := decodeBody(t, rec)
	if patched["amount"].(float64) != 20000 {
		t.Errorf("patched amount: %v", patched["amount"])
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(id, 10), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(id, 10), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", rec.Code)
	}
}

func TestSingleObjectCreateAndValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", `{"date":"2026-02-01","type":"지출","amount":500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("single create: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", `{"type":"지출","amount":500}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["field"] != "date" {
		t.Errorf("expected offending field date, got %v", body["field"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?start=not-a-date", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad start param: status %d", rec.Code)
	}
}

func TestFixedExpenseLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/fixed-expenses", `{
		"major_category":"주거","sub_category":"월세","amount":650000,
		"start_date":"2026-01-01","end_date":"2026-03-31","day_of_month":31
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	def := decodeBody(t, rec)
	id := int64(def["id"].(float64))

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?per_page=10", "")
	list := decodeBody(t, rec)
	if list["total"].(float64) != 3 {
		t.Fatalf("expected 3 generated occurrences, got %v", list["total"])
	}

	rec = doJSON(t, srv, http.MethodPatch, "/api/fixed-expenses/"+strconv.FormatInt(id, 10), `{"end_date":"2026-02-28","day_of_month":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?per_page=10", "")
	list = decodeBody(t, rec)
	if list["total"].(float64) != 2 {
		t.Fatalf("expected regeneration to 2 occurrences, got %v", list["total"])
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/fixed-expenses/"+strconv.FormatInt(id, 10), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?per_page=10", "")
	list = decodeBody(t, rec)
	if list["total"].(float64) != 0 {
		t.Fatalf("expected cascade delete, got %v", list["total"])
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/fixed-expenses", `{"sub_category":"월세","amount":1,"start_date":"2026-01-01","end_date":"2026-02-01","day_of_month":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation: status %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["field"] != "major_category" {
		t.Errorf("expected field major_category, got %v", body["field"])
	}
}

func TestSummaryAndCalendarEndpoints(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/transactions", `[
		{"date":"2026-02-03","type":"지출","amount":500,"major_category":"식비","sub_category":"점심"},
		{"date":"2026-02-03","type":"지출","amount":700,"major_category":"식비","sub_category":"저녁"}
	]`)

	rec := doJSON(t, srv, http.MethodGet, "/api/summary?start=2026-02-01&end=2026-02-28", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	summary := decodeBody(t, rec)
	if summary["total"].(float64) != 1200 {
		t.Errorf("summary total: %v", summary["total"])
	}
	byMajor := summary["by_major"].(map[string]any)
	if byMajor["식비"].(map[string]any)["total"].(float64) != 1200 {
		t.Errorf("식비 total: %v", byMajor["식비"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/calendar?year=2026&month=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar: status %d", rec.Code)
	}
	view := decodeBody(t, rec)
	days := view["days"].(map[string]any)
	cell := days["2026-02-03"].(map[string]any)
	if cell["count"].(float64) != 2 || cell["expense"].(float64) != 1200 {
		t.Errorf("cell: %v", cell)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/daily?start=2026-02-01&end=2026-02-28", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("daily: status %d", rec.Code)
	}
}

func TestSettingsCategoriesRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/settings/categories", `{"majors":["식비","교통","식비"],"subs":["점심","버스"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/settings/categories", "")
	body := decodeBody(t, rec)
	majors := body["majors"].([]any)
	if len(majors) != 2 {
		t.Errorf("majors: %v", majors)
	}
}

func TestSavingsForecastEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/savings", `{
		"name":"정기적금","kind":"적금","initial_balance":1000,
		"contribution_amount":100,"start_date":"2026-01-10","day_of_month":10
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create saving: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/savings/forecast?on=2026-03-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast: status %d", rec.Code)
	}
	forecast := decodeBody(t, rec)
	if forecast["total"].(float64) != 1300 {
		t.Errorf("forecast total: %v", forecast["total"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rec := doJSON(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: status %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz: status %d", rec.Code)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	store := memory.New()
	logger := log.New(slog.LevelError, "test")
	srv := New("127.0.0.1:0", Services{
		Transactions:  services.NewTransactionService(store, nil, logger),
		FixedExpenses: services.NewFixedExpenseService(store, nil, logger),
		Savings:       services.NewSavingsService(store, logger),
		Summary:       services.NewSummaryService(store, logger),
		Categories:    services.NewCategoryService(store, logger),
	}, logger, 2)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/transactions", `{"date":"2026-01-01","amount":1}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", `{"date":"2026-01-01","amount":1}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}

	// Reads stay unthrottled.
	if rec := doJSON(t, srv, http.MethodGet, "/api/transactions", ""); rec.Code != http.StatusOK {
		t.Errorf("read throttled: status %d", rec.Code)
	}
}
