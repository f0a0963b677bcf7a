package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"moneycal/internal/amqp"
	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/log"
)

// FixedExpenseInput is an incoming definition before validation.
type FixedExpenseInput struct {
	MajorCategory string           `json:"major_category"`
	SubCategory   string           `json:"sub_category"`
	Description   string           `json:"description"`
	Amount        *decimal.Decimal `json:"amount"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	DayOfMonth    int              `json:"day_of_month"`
	Active        *bool            `json:"active"`
}

// FixedExpensePatch updates a subset of definition fields.
type FixedExpensePatch struct {
	MajorCategory *string          `json:"major_category"`
	SubCategory   *string          `json:"sub_category"`
	Description   *string          `json:"description"`
	Amount        *decimal.Decimal `json:"amount"`
	StartDate     *string          `json:"start_date"`
	EndDate       *string          `json:"end_date"`
	DayOfMonth    *int             `json:"day_of_month"`
	Active        *bool            `json:"active"`
}

// FixedExpenseService owns the lifecycle of recurring expense definitions and
// keeps their materialized occurrence sets in step with every change.
type FixedExpenseService struct {
	store  ledger.Store
	events *amqp.Client
	logger *log.Logger
}

func NewFixedExpenseService(store ledger.Store, events *amqp.Client, logger *log.Logger) *FixedExpenseService {
	return &FixedExpenseService{
		store:  store,
		events: events,
		logger: logger.WithComponent("fixed-expenses"),
	}
}

func (s *FixedExpenseService) coerce(in FixedExpenseInput) (core.FixedExpense, error) {
	def := core.FixedExpense{
		MajorCategory: in.MajorCategory,
		SubCategory:   in.SubCategory,
		Description:   in.Description,
		DayOfMonth:    in.DayOfMonth,
		Active:        true,
	}
	if in.Amount != nil {
		def.Amount = *in.Amount
	}
	if in.Active != nil {
		def.Active = *in.Active
	}
	if in.StartDate != "" {
		start, err := core.ParseDate(in.StartDate)
		if err != nil {
			return core.FixedExpense{}, core.NewValidationError("start_date", err.Error())
		}
		def.StartDate = start
	}
	if in.EndDate != "" {
		end, err := core.ParseDate(in.EndDate)
		if err != nil {
			return core.FixedExpense{}, core.NewValidationError("end_date", err.Error())
		}
		def.EndDate = end
	}
	if err := def.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	return def, nil
}

// Create validates, persists the definition, then materializes its monthly
// occurrences tagged with the new id. Validation failures leave the store
// untouched.
func (s *FixedExpenseService) Create(ctx context.Context, in FixedExpenseInput) (core.FixedExpense, error) {
	def, err := s.coerce(in)
	if err != nil {
		return core.FixedExpense{}, err
	}

	created, err := s.store.CreateFixedExpense(ctx, def)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("create fixed expense: %w", err)
	}

	occurrences := core.ProjectOccurrences(created, created.StartDate, created.EndDate)
	if err := s.store.ReplaceGenerated(ctx, created.SourceTag(), occurrences); err != nil {
		return core.FixedExpense{}, fmt.Errorf("materialize occurrences: %w", err)
	}

	s.publishRegenerated(ctx, created.ID)
	s.logger.InfoContext(ctx, "Created fixed expense",
		"id", created.ID, "occurrences", len(occurrences))
	return created, nil
}

// Update applies a patch, revalidates, then atomically swaps the occurrence
// set for a fresh projection. Returns nil when the id is unknown.
func (s *FixedExpenseService) Update(ctx context.Context, id int64, patch FixedExpensePatch) (*core.FixedExpense, error) {
	existing, err := s.store.GetFixedExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	def := *existing
	if patch.MajorCategory != nil {
		def.MajorCategory = *patch.MajorCategory
	}
	if patch.SubCategory != nil {
		def.SubCategory = *patch.SubCategory
	}
	if patch.Description != nil {
		def.Description = *patch.Description
	}
	if patch.Amount != nil {
		def.Amount = *patch.Amount
	}
	if patch.StartDate != nil {
		start, err := core.ParseDate(*patch.StartDate)
		if err != nil {
			return nil, core.NewValidationError("start_date", err.Error())
		}
		def.StartDate = start
	}
	if patch.EndDate != nil {
		end, err := core.ParseDate(*patch.EndDate)
		if err != nil {
			return nil, core.NewValidationError("end_date", err.Error())
		}
		def.EndDate = end
	}
	if patch.DayOfMonth != nil {
		def.DayOfMonth = *patch.DayOfMonth
	}
	if patch.Active != nil {
		def.Active = *patch.Active
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateFixedExpense(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("update fixed expense: %w", err)
	}
	if !ok {
		return nil, nil
	}

	occurrences := core.ProjectOccurrences(def, def.StartDate, def.EndDate)
	if err := s.store.ReplaceGenerated(ctx, def.SourceTag(), occurrences); err != nil {
		return nil, fmt.Errorf("regenerate occurrences: %w", err)
	}

	s.publishRegenerated(ctx, def.ID)
	s.logger.InfoContext(ctx, "Updated fixed expense",
		"id", def.ID, "occurrences", len(occurrences))
	return &def, nil
}

// Delete removes a definition and its generated occurrences as one unit.
func (s *FixedExpenseService) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.DeleteFixedExpenseCascade(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete fixed expense: %w", err)
	}
	if ok {
		s.publishRegenerated(ctx, id)
		s.logger.InfoContext(ctx, "Deleted fixed expense", "id", id)
	}
	return ok, nil
}

func (s *FixedExpenseService) Get(ctx context.Context, id int64) (*core.FixedExpense, error) {
	return s.store.GetFixedExpense(ctx, id)
}

func (s *FixedExpenseService) List(ctx context.Context) ([]core.FixedExpense, error) {
	return s.store.ListFixedExpenses(ctx)
}

func (s *FixedExpenseService) publishRegenerated(ctx context.Context, id int64) {
	if err := s.events.Publish(ctx, amqp.EventFixedRegenerated, id); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish regenerate event", "id", id, "error", err)
	}
}
