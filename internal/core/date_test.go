package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2026-01-31", NewDate(2026, 1, 31), true},
		{"2026/02/28", NewDate(2026, 2, 28), true},
		{"15/01/2026", NewDate(2026, 1, 15), true}, // day-first wins
		{"2026-03-10T09:30:00Z", NewDate(2026, 3, 10), true},
		{"2026-99-99", Date{}, false},
		{"not a date", Date{}, false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q): unexpected error %v", i, tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d (%q): expected error", i, tc.in)
			}
			continue
		}
		if !got.Equal(tc.want) {
			t.Fatalf("case %d (%q): got %s want %s", i, tc.in, got, tc.want)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	got := MonthsBetween(NewDate(2025, 11, 15), NewDate(2026, 2, 3))
	want := []YearMonth{
		{Year: 2025, Month: 11},
		{Year: 2025, Month: 12},
		{Year: 2026, Month: 1},
		{Year: 2026, Month: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("months mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthsBetweenInvertedRangeIsEmpty(t *testing.T) {
	if got := MonthsBetween(NewDate(2026, 3, 1), NewDate(2026, 1, 1)); len(got) != 0 {
		t.Fatalf("expected empty sequence, got %v", got)
	}
}

func TestClampDay(t *testing.T) {
	cases := []struct {
		year, month, day, want int
	}{
		{2026, 1, 31, 31},
		{2026, 2, 31, 28}, // non-leap February
		{2024, 2, 31, 29}, // leap February
		{2026, 4, 31, 30},
		{2026, 4, 15, 15},
	}
	for i, tc := range cases {
		if got := ClampDay(tc.year, tc.month, tc.day); got != tc.want {
			t.Fatalf("case %d: ClampDay(%d, %d, %d) = %d, want %d",
				i, tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, 7, 4)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-07-04"` {
		t.Fatalf("unexpected JSON %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip changed date: %s", back)
	}

	var unset Date
	b, err = unset.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("zero date should marshal to null, got %s", b)
	}
}
