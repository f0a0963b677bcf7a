package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/ledger/memory"
)

func occurrenceDates(t *testing.T, store *memory.Store, tag string) []string {
	t.Helper()
	items, _, err := store.QueryTransactions(context.Background(), ledger.TransactionFilter{})
	if err != nil {
		t.Fatalf("QueryTransactions: %v", err)
	}
	var dates []string
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Source == tag {
			dates = append(dates, items[i].Date.String())
		}
	}
	return dates
}

func TestCreateMaterializesMonthlyOccurrences(t *testing.T) {
	store := memory.New()
	svc := NewFixedExpenseService(store, nil, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, FixedExpenseInput{
		MajorCategory: "주거",
		SubCategory:   "월세",
		Description:   "오피스텔",
		Amount:        dec("650000"),
		StartDate:     "2026-01-01",
		EndDate:       "2026-03-31",
		DayOfMonth:    31,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dates := occurrenceDates(t, store, created.SourceTag())
	want := []string{"2026-01-31", "2026-02-28", "2026-03-31"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrence %d: got %s, want %s", i, dates[i], want[i])
		}
	}

	items, _, _ := store.QueryTransactions(ctx, ledger.TransactionFilter{})
	for _, tx := range items {
		if tx.Direction != core.Expense {
			t.Errorf("occurrence %d: direction %q", tx.ID, tx.Direction)
		}
		if !tx.Amount.Equal(decimal.NewFromInt(650000)) {
			t.Errorf("occurrence %d: amount %s", tx.ID, tx.Amount)
		}
	}
}

func TestUpdateRegeneratesOccurrences(t *testing.T) {
	store := memory.New()
	svc := NewFixedExpenseService(store, nil, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, FixedExpenseInput{
		MajorCategory: "주거",
		SubCategory:   "관리비",
		Amount:        dec("100000"),
		StartDate:     "2026-01-01",
		EndDate:       "2026-03-31",
		DayOfMonth:    10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	day := 15
	updated, err := svc.Update(ctx, created.ID, FixedExpensePatch{
		Amount:     dec("120000"),
		DayOfMonth: &day,
		EndDate:    strPtr("2026-02-28"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated == nil {
		t.Fatal("Update: unexpectedly not found")
	}
	if updated.DayOfMonth != 15 || !updated.Amount.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("patched definition: day %d amount %s", updated.DayOfMonth, updated.Amount)
	}

	dates := occurrenceDates(t, store, created.SourceTag())
	want := []string{"2026-01-15", "2026-02-15"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d occurrences after update, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrence %d: got %s, want %s", i, dates[i], want[i])
		}
	}

	items, _, _ := store.QueryTransactions(ctx, ledger.TransactionFilter{})
	for _, tx := range items {
		if !tx.Amount.Equal(decimal.NewFromInt(120000)) {
			t.Errorf("regenerated occurrence kept stale amount %s", tx.Amount)
		}
	}
}

func TestDeleteRemovesDefinitionAndOccurrences(t *testing.T) {
	store := memory.New()
	svc := NewFixedExpenseService(store, nil, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, FixedExpenseInput{
		MajorCategory: "보험",
		SubCategory:   "실손",
		Amount:        dec("50000"),
		StartDate:     "2026-01-01",
		EndDate:       "2026-02-28",
		DayOfMonth:    20,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := svc.Delete(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	ok, err = svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok {
		t.Error("second delete of same id should report not found")
	}

	if def, _ := svc.Get(ctx, created.ID); def != nil {
		t.Error("definition still present after delete")
	}
	if dates := occurrenceDates(t, store, created.SourceTag()); len(dates) != 0 {
		t.Errorf("occurrences still present after delete: %v", dates)
	}
}

func TestCreateValidatesBeforeWriting(t *testing.T) {
	store := memory.New()
	svc := NewFixedExpenseService(store, nil, testLogger())
	ctx := context.Background()

	cases := []struct {
		in    FixedExpenseInput
		field string
	}{
		{FixedExpenseInput{SubCategory: "월세", Amount: dec("1"), StartDate: "2026-01-01", EndDate: "2026-02-01", DayOfMonth: 1}, "major_category"},
		{FixedExpenseInput{MajorCategory: "주거", Amount: dec("1"), StartDate: "2026-01-01", EndDate: "2026-02-01", DayOfMonth: 1}, "sub_category"},
		{FixedExpenseInput{MajorCategory: "주거", SubCategory: "월세", Amount: dec("-5"), StartDate: "2026-01-01", EndDate: "2026-02-01", DayOfMonth: 1}, "amount"},
		{FixedExpenseInput{MajorCategory: "주거", SubCategory: "월세", Amount: dec("1"), StartDate: "2026-03-01", EndDate: "2026-02-01", DayOfMonth: 1}, "end_date"},
		{FixedExpenseInput{MajorCategory: "주거", SubCategory: "월세", Amount: dec("1"), StartDate: "2026-01-01", EndDate: "2026-02-01", DayOfMonth: 32}, "day_of_month"},
	}
	for i, tc := range cases {
		_, err := svc.Create(ctx, tc.in)
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field {
			t.Errorf("case %d: field: got %q, want %q", i, verr.Field, tc.field)
		}
	}

	if defs, _ := svc.List(ctx); len(defs) != 0 {
		t.Errorf("invalid input reached the store: %d definitions", len(defs))
	}
	if _, total, _ := store.QueryTransactions(ctx, ledger.TransactionFilter{}); total != 0 {
		t.Errorf("invalid input materialized %d transactions", total)
	}
}
