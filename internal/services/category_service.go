package services

import (
	"context"
	"fmt"

	"moneycal/internal/ledger"
	"moneycal/internal/log"
)

// CategoryService manages the user-curated category vocabulary used by entry
// forms, independent of the categories observed in stored transactions.
type CategoryService struct {
	store  ledger.Store
	logger *log.Logger
}

func NewCategoryService(store ledger.Store, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent("categories"),
	}
}

// Replace overwrites both vocabulary lists as one unit.
func (s *CategoryService) Replace(ctx context.Context, majors, subs []string) error {
	if err := s.store.ReplaceCategories(ctx, majors, subs); err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	s.logger.InfoContext(ctx, "Replaced category vocabulary",
		"majors", len(majors), "subs", len(subs))
	return nil
}

// Get returns both lists sorted and deduplicated.
func (s *CategoryService) Get(ctx context.Context) (majors, subs []string, err error) {
	return s.store.GetCategories(ctx)
}
