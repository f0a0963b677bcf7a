package core

import "github.com/shopspring/decimal"

// Fallback labels used when a transaction or definition carries no category.
const (
	FallbackMajor      = "uncategorized"
	FallbackSub        = "unspecified"
	FallbackFixedLabel = "fixed"
)

// MajorSummary holds one major category's subtotal and its per-sub-category
// breakdown.
type MajorSummary struct {
	Total decimal.Decimal
	Subs  map[string]decimal.Decimal
}

// CategorySummary is a transient aggregation of dated monetary events into
// major/sub category totals. It is rebuilt on every query, never persisted.
type CategorySummary struct {
	Total   decimal.Decimal
	ByMajor map[string]*MajorSummary
}

// NewCategorySummary returns an empty summary ready to accumulate into.
func NewCategorySummary() *CategorySummary {
	return &CategorySummary{ByMajor: make(map[string]*MajorSummary)}
}

// Add accumulates an amount under a major/sub category pair, creating the
// buckets on first use.
func (s *CategorySummary) Add(major, sub string, amount decimal.Decimal) {
	s.Total = s.Total.Add(amount)
	ms, ok := s.ByMajor[major]
	if !ok {
		ms = &MajorSummary{Subs: make(map[string]decimal.Decimal)}
		s.ByMajor[major] = ms
	}
	ms.Total = ms.Total.Add(amount)
	ms.Subs[sub] = ms.Subs[sub].Add(amount)
}
