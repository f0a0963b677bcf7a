package services

import (
	"context"
	"time"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/log"
)

// SummaryService aggregates transactions and fixed-expense projections into
// category totals. Every call recomputes from the store; nothing is cached.
type SummaryService struct {
	store  ledger.Store
	logger *log.Logger
	now    func() time.Time
}

func NewSummaryService(store ledger.Store, logger *log.Logger) *SummaryService {
	return &SummaryService{
		store:  store,
		logger: logger.WithComponent("summary"),
		now:    time.Now,
	}
}

// Summarize aggregates [start, end]. Zero bounds default to the stored
// transaction date range, or to the current calendar month when the ledger
// is empty.
//
// Directly entered transactions contribute under their own categories;
// generated occurrences are skipped because each active definition
// contributes its projection over the intersection of its period with the
// range. Summing both would double-count the materialized rows.
func (s *SummaryService) Summarize(ctx context.Context, start, end core.Date) (*core.CategorySummary, error) {
	if start.IsZero() || end.IsZero() {
		minDate, maxDate, ok, err := s.store.TransactionDateRange(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			today := s.now()
			minDate, maxDate = core.MonthBounds(today.Year(), int(today.Month()))
		}
		if start.IsZero() {
			start = minDate
		}
		if end.IsZero() {
			end = maxDate
		}
	}

	items, _, err := s.store.QueryTransactions(ctx, ledger.TransactionFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	summary := core.NewCategorySummary()
	for _, tx := range items {
		if tx.Generated() {
			continue
		}
		major := tx.MajorCategory
		if major == "" {
			major = tx.Category
		}
		if major == "" {
			major = core.FallbackMajor
		}
		sub := tx.SubCategory
		if sub == "" {
			sub = core.FallbackSub
		}
		summary.Add(major, sub, tx.Amount)
	}

	fixed, err := s.store.ListActiveFixedExpenses(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range fixed {
		feStart := def.StartDate
		if feStart.IsZero() {
			feStart = start
		}
		feEnd := def.EndDate
		if feEnd.IsZero() {
			feEnd = end
		}

		// Intersection of the definition's period with the query range.
		lo := start
		if feStart.After(lo.Time) {
			lo = feStart
		}
		hi := end
		if feEnd.Before(hi.Time) {
			hi = feEnd
		}
		if lo.After(hi.Time) {
			continue
		}

		major := def.MajorCategory
		if major == "" {
			major = core.FallbackFixedLabel
		}
		sub := def.SubCategory
		if sub == "" {
			sub = core.FallbackFixedLabel
		}
		for range core.ProjectOccurrences(def, lo, hi) {
			summary.Add(major, sub, def.Amount)
		}
	}

	return summary, nil
}
