package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moneycal/internal/core"
	"moneycal/internal/ledger/memory"
)

func TestCreateSavingRequiresNameAndKind(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, SavingInput{Name: "비상금"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Field != "kind" {
		t.Fatalf("expected kind validation error, got %v", err)
	}

	_, err = svc.Create(ctx, SavingInput{Kind: "적금"})
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestForecastMonthlyAndWithdrawn(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, SavingInput{
		Name:               "정기적금",
		Kind:               "적금",
		InitialBalance:     dec("1000"),
		ContributionAmount: dec("100"),
		StartDate:          "2026-01-10",
		EndDate:            "2026-12-31",
		DayOfMonth:         10,
		Frequency:          "monthly",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.Create(ctx, SavingInput{
		Name:               "해지계좌",
		Kind:               "예금",
		InitialBalance:     dec("5000"),
		ContributionAmount: dec("300"),
		StartDate:          "2026-01-01",
		Withdrawn:          true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	forecast, err := svc.Forecast(ctx, core.NewDate(2026, 3, 15))
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	byName := make(map[string]decimal.Decimal)
	for _, item := range forecast.Items {
		byName[item.Saving.Name] = item.PredictedBalance
	}
	if got := byName["정기적금"]; !got.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("정기적금: got %s, want 1300", got)
	}
	if got := byName["해지계좌"]; !got.Equal(decimal.Zero) {
		t.Errorf("해지계좌: got %s, want 0", got)
	}
	if !forecast.Total.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("total: got %s, want 1300", forecast.Total)
	}
}

func TestForecastRespectsEndDate(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, SavingInput{
		Name:               "기간제",
		Kind:               "적금",
		InitialBalance:     dec("0"),
		ContributionAmount: dec("50"),
		StartDate:          "2026-01-05",
		EndDate:            "2026-02-20",
		DayOfMonth:         5,
		Frequency:          "monthly",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	forecast, err := svc.Forecast(ctx, core.NewDate(2026, 4, 1))
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if got := forecast.Items[0].PredictedBalance; !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("predicted: got %s, want 100", got)
	}
}

func TestForecastDefaultsDayToStartDate(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, SavingInput{
		Name:               "자동일자",
		Kind:               "적금",
		InitialBalance:     dec("0"),
		ContributionAmount: dec("10"),
		StartDate:          "2026-01-20",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Contributions land on the 20th: Jan 20 and Feb 20 are in range,
	// Mar 20 is past the as-of date.
	forecast, err := svc.Forecast(ctx, core.NewDate(2026, 3, 15))
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if got := forecast.Items[0].PredictedBalance; !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("predicted: got %s, want 20", got)
	}
}

func TestForecastNonMonthlyFrequencyContributesNothing(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, SavingInput{
		Name:               "주간적립",
		Kind:               "적금",
		InitialBalance:     dec("500"),
		ContributionAmount: dec("50"),
		StartDate:          "2026-01-01",
		Frequency:          "weekly",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	forecast, err := svc.Forecast(ctx, core.NewDate(2026, 6, 1))
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if got := forecast.Items[0].PredictedBalance; !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("predicted: got %s, want initial balance only", got)
	}
}

func TestSavingUpdateAndDelete(t *testing.T) {
	svc := NewSavingsService(memory.New(), testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, SavingInput{Name: "적금", Kind: "적금"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	withdrawn := true
	updated, err := svc.Update(ctx, created.ID, SavingPatch{Withdrawn: &withdrawn})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated == nil || !updated.Withdrawn {
		t.Fatalf("expected withdrawn to stick, got %+v", updated)
	}

	if updated, err := svc.Update(ctx, 999, SavingPatch{}); err != nil || updated != nil {
		t.Errorf("unknown id: got %+v, %v", updated, err)
	}

	ok, err := svc.Delete(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
}
