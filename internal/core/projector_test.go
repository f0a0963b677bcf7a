package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestProjectOccurrencesClampsShortMonths(t *testing.T) {
	def := FixedExpense{
		ID:            7,
		MajorCategory: "주거",
		SubCategory:   "월세",
		Amount:        decimal.NewFromInt(650000),
		StartDate:     NewDate(2026, 1, 1),
		EndDate:       NewDate(2026, 3, 31),
		DayOfMonth:    31,
		Active:        true,
	}

	occs := ProjectOccurrences(def, def.StartDate, def.EndDate)
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}

	wantDates := []Date{NewDate(2026, 1, 31), NewDate(2026, 2, 28), NewDate(2026, 3, 31)}
	for i, occ := range occs {
		if !occ.Date.Equal(wantDates[i]) {
			t.Fatalf("occurrence %d: got %s want %s", i, occ.Date, wantDates[i])
		}
		if occ.Direction != Expense {
			t.Fatalf("occurrence %d: direction %q", i, occ.Direction)
		}
		if occ.Source != "fixed:7" {
			t.Fatalf("occurrence %d: source %q", i, occ.Source)
		}
		if !occ.Amount.Equal(def.Amount) {
			t.Fatalf("occurrence %d: amount %s", i, occ.Amount)
		}
	}
}

func TestProjectOccurrencesDropsClampedDatesOutsideRange(t *testing.T) {
	// End date on the 5th: the clamped day 31 of the final month lands past
	// the range and must be dropped.
	def := FixedExpense{
		ID:         1,
		Amount:     decimal.NewFromInt(100),
		DayOfMonth: 31,
	}
	occs := ProjectOccurrences(def, NewDate(2026, 1, 1), NewDate(2026, 2, 5))
	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if !occs[0].Date.Equal(NewDate(2026, 1, 31)) {
		t.Fatalf("got %s", occs[0].Date)
	}
}

func TestProjectOccurrencesDeterministic(t *testing.T) {
	def := FixedExpense{
		ID:            3,
		MajorCategory: "보험",
		SubCategory:   "실손",
		Amount:        decimal.NewFromInt(50000),
		DayOfMonth:    20,
	}
	start, end := NewDate(2026, 1, 1), NewDate(2026, 6, 30)
	first := ProjectOccurrences(def, start, end)
	second := ProjectOccurrences(def, start, end)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("projection not deterministic (-first +second):\n%s", diff)
	}
}

func TestProjectOccurrencesEmptyForInvertedRange(t *testing.T) {
	def := FixedExpense{ID: 1, Amount: decimal.NewFromInt(1), DayOfMonth: 1}
	if occs := ProjectOccurrences(def, NewDate(2026, 5, 1), NewDate(2026, 1, 1)); occs != nil {
		t.Fatalf("expected nil, got %v", occs)
	}
}

func TestCategorySummaryAdd(t *testing.T) {
	s := NewCategorySummary()
	s.Add("식비", "점심", decimal.NewFromInt(12000))
	s.Add("식비", "저녁", decimal.NewFromInt(20000))
	s.Add("주거", "월세", decimal.NewFromInt(650000))

	if !s.Total.Equal(decimal.NewFromInt(682000)) {
		t.Fatalf("total %s", s.Total)
	}
	food := s.ByMajor["식비"]
	if food == nil || !food.Total.Equal(decimal.NewFromInt(32000)) {
		t.Fatalf("food subtotal wrong: %+v", food)
	}
	if !food.Subs["점심"].Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("lunch subtotal %s", food.Subs["점심"])
	}
}
