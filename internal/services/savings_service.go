package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/log"
)

// SavingInput is an incoming savings definition before validation.
type SavingInput struct {
	Name               string           `json:"name"`
	Kind               string           `json:"kind"`
	InitialBalance     *decimal.Decimal `json:"initial_balance"`
	ContributionAmount *decimal.Decimal `json:"contribution_amount"`
	StartDate          string           `json:"start_date"`
	EndDate            string           `json:"end_date"`
	DayOfMonth         int              `json:"day_of_month"`
	Frequency          string           `json:"frequency"`
	Withdrawn          bool             `json:"withdrawn"`
	Active             *bool            `json:"active"`
}

// SavingPatch updates a subset of savings fields.
type SavingPatch struct {
	Name               *string          `json:"name"`
	Kind               *string          `json:"kind"`
	InitialBalance     *decimal.Decimal `json:"initial_balance"`
	ContributionAmount *decimal.Decimal `json:"contribution_amount"`
	StartDate          *string          `json:"start_date"`
	EndDate            *string          `json:"end_date"`
	DayOfMonth         *int             `json:"day_of_month"`
	Frequency          *string          `json:"frequency"`
	Withdrawn          *bool            `json:"withdrawn"`
	Active             *bool            `json:"active"`
}

// SavingForecastItem pairs a definition with its predicted balance.
type SavingForecastItem struct {
	Saving           core.Saving
	PredictedBalance decimal.Decimal
}

// SavingsForecast is the forecast over every active definition.
type SavingsForecast struct {
	Items []SavingForecastItem
	Total decimal.Decimal
}

// SavingsService manages savings definitions. Unlike fixed expenses they are
// never materialized; balances are forecast on demand.
type SavingsService struct {
	store  ledger.Store
	logger *log.Logger
}

func NewSavingsService(store ledger.Store, logger *log.Logger) *SavingsService {
	return &SavingsService{
		store:  store,
		logger: logger.WithComponent("savings"),
	}
}

func (s *SavingsService) coerce(in SavingInput) (core.Saving, error) {
	sv := core.Saving{
		Name:       in.Name,
		Kind:       in.Kind,
		DayOfMonth: in.DayOfMonth,
		Frequency:  in.Frequency,
		Withdrawn:  in.Withdrawn,
		Active:     true,
	}
	if sv.Frequency == "" {
		sv.Frequency = core.FrequencyMonthly
	}
	if in.InitialBalance != nil {
		sv.InitialBalance = *in.InitialBalance
	}
	if in.ContributionAmount != nil {
		sv.ContributionAmount = *in.ContributionAmount
	}
	if in.Active != nil {
		sv.Active = *in.Active
	}
	if in.StartDate != "" {
		start, err := core.ParseDate(in.StartDate)
		if err != nil {
			return core.Saving{}, core.NewValidationError("start_date", err.Error())
		}
		sv.StartDate = start
	}
	if in.EndDate != "" {
		end, err := core.ParseDate(in.EndDate)
		if err != nil {
			return core.Saving{}, core.NewValidationError("end_date", err.Error())
		}
		sv.EndDate = end
	}
	if err := sv.Validate(); err != nil {
		return core.Saving{}, err
	}
	return sv, nil
}

func (s *SavingsService) Create(ctx context.Context, in SavingInput) (core.Saving, error) {
	sv, err := s.coerce(in)
	if err != nil {
		return core.Saving{}, err
	}
	created, err := s.store.CreateSaving(ctx, sv)
	if err != nil {
		return core.Saving{}, fmt.Errorf("create saving: %w", err)
	}
	s.logger.InfoContext(ctx, "Created saving", "id", created.ID, "name", created.Name)
	return created, nil
}

// Update applies a patch and revalidates. Returns nil when the id is unknown.
func (s *SavingsService) Update(ctx context.Context, id int64, patch SavingPatch) (*core.Saving, error) {
	existing, err := s.store.GetSaving(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sv := *existing
	if patch.Name != nil {
		sv.Name = *patch.Name
	}
	if patch.Kind != nil {
		sv.Kind = *patch.Kind
	}
	if patch.InitialBalance != nil {
		sv.InitialBalance = *patch.InitialBalance
	}
	if patch.ContributionAmount != nil {
		sv.ContributionAmount = *patch.ContributionAmount
	}
	if patch.StartDate != nil {
		start, err := core.ParseDate(*patch.StartDate)
		if err != nil {
			return nil, core.NewValidationError("start_date", err.Error())
		}
		sv.StartDate = start
	}
	if patch.EndDate != nil {
		end, err := core.ParseDate(*patch.EndDate)
		if err != nil {
			return nil, core.NewValidationError("end_date", err.Error())
		}
		sv.EndDate = end
	}
	if patch.DayOfMonth != nil {
		sv.DayOfMonth = *patch.DayOfMonth
	}
	if patch.Frequency != nil {
		sv.Frequency = *patch.Frequency
	}
	if patch.Withdrawn != nil {
		sv.Withdrawn = *patch.Withdrawn
	}
	if patch.Active != nil {
		sv.Active = *patch.Active
	}
	if err := sv.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateSaving(ctx, sv)
	if err != nil {
		return nil, fmt.Errorf("update saving: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &sv, nil
}

func (s *SavingsService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.store.DeleteSaving(ctx, id)
}

func (s *SavingsService) List(ctx context.Context) ([]core.Saving, error) {
	return s.store.ListSavings(ctx)
}

// Forecast predicts every active definition's balance as of the given date.
// Withdrawn accounts predict zero. Only monthly contributions accumulate:
// one per clamped occurrence date inside [start, min(end, asOf)].
func (s *SavingsService) Forecast(ctx context.Context, asOf core.Date) (SavingsForecast, error) {
	savings, err := s.store.ListActiveSavings(ctx)
	if err != nil {
		return SavingsForecast{}, err
	}

	forecast := SavingsForecast{Items: make([]SavingForecastItem, 0, len(savings))}
	for _, sv := range savings {
		predicted := predictBalance(sv, asOf)
		forecast.Items = append(forecast.Items, SavingForecastItem{
			Saving:           sv,
			PredictedBalance: predicted,
		})
		forecast.Total = forecast.Total.Add(predicted)
	}
	return forecast, nil
}

func predictBalance(sv core.Saving, asOf core.Date) decimal.Decimal {
	if sv.Withdrawn {
		return decimal.Zero
	}

	balance := sv.InitialBalance
	if sv.StartDate.IsZero() || sv.ContributionAmount.IsZero() {
		return balance
	}
	if sv.Frequency != core.FrequencyMonthly {
		// Other frequencies are stored but contribute nothing yet.
		return balance
	}

	end := asOf
	if !sv.EndDate.IsZero() && sv.EndDate.Before(end.Time) {
		end = sv.EndDate
	}

	day := sv.DayOfMonth
	if day <= 0 {
		day = sv.StartDate.Day()
	}

	contributions := 0
	for _, ym := range core.MonthsBetween(sv.StartDate, end) {
		occ := core.NewDate(ym.Year, ym.Month, core.ClampDay(ym.Year, ym.Month, day))
		if occ.Before(sv.StartDate.Time) || occ.After(end.Time) {
			continue
		}
		contributions++
	}
	return balance.Add(sv.ContributionAmount.Mul(decimal.NewFromInt(int64(contributions))))
}
