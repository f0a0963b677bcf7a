package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
	}{
		{"Income", Income},
		{"  monthly income ", Income},
		{"수입", Income},
		{"expense", Expense},
		{"EXPENSE (card)", Expense},
		{"지출", Expense},
		{"transfer", "Transfer"}, // unknown labels are capitalized, not rejected
		{"", ""},
	}
	for i, tc := range cases {
		if got := NormalizeDirection(tc.in); got != tc.want {
			t.Fatalf("case %d (%q): got %q want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,234", "1234", true},
		{"1,234.56", "1234.56", true},
		{"650000", "650000", true},
		{"-42.5", "-42.5", true},
		{"", "", false},
		{"abc", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q): unexpected error %v", i, tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d (%q): expected error", i, tc.in)
			}
			continue
		}
		if want, _ := decimal.NewFromString(tc.want); !got.Equal(want) {
			t.Fatalf("case %d (%q): got %s want %s", i, tc.in, got, want)
		}
	}
}

func TestFixedExpenseValidate(t *testing.T) {
	good := FixedExpense{
		MajorCategory: "주거",
		SubCategory:   "월세",
		Amount:        decimal.NewFromInt(650000),
		StartDate:     NewDate(2026, 1, 1),
		EndDate:       NewDate(2026, 3, 31),
		DayOfMonth:    31,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mutate func(*FixedExpense)
		field  string
	}{
		{func(fe *FixedExpense) { fe.MajorCategory = "" }, "major_category"},
		{func(fe *FixedExpense) { fe.SubCategory = " " }, "sub_category"},
		{func(fe *FixedExpense) { fe.Amount = decimal.Zero }, "amount"},
		{func(fe *FixedExpense) { fe.StartDate = Date{} }, "start_date"},
		{func(fe *FixedExpense) { fe.EndDate = Date{} }, "end_date"},
		{func(fe *FixedExpense) { fe.EndDate = NewDate(2025, 1, 1) }, "end_date"},
		{func(fe *FixedExpense) { fe.DayOfMonth = 0 }, "day_of_month"},
		{func(fe *FixedExpense) { fe.DayOfMonth = 32 }, "day_of_month"},
	}
	for i, tc := range cases {
		fe := good
		tc.mutate(&fe)
		err := fe.Validate()
		if err == nil {
			t.Fatalf("case %d: expected error", i)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected ValidationError, got %T", i, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("case %d: expected field %q, got %q", i, tc.field, verr.Field)
		}
	}
}

func TestFixedSourceTag(t *testing.T) {
	fe := FixedExpense{ID: 42}
	if got := fe.SourceTag(); got != "fixed:42" {
		t.Fatalf("got %q", got)
	}
	tx := Transaction{Source: "fixed:42"}
	if !tx.Generated() {
		t.Fatal("tagged transaction should be generated")
	}
	if (Transaction{}).Generated() {
		t.Fatal("untagged transaction should not be generated")
	}
}
