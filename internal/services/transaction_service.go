// Package services implements the ledger use cases on top of the store ports.
package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"moneycal/internal/amqp"
	"moneycal/internal/core"
	"moneycal/internal/ledger"
	"moneycal/internal/log"
)

// TransactionInput is an incoming transaction before normalization. Date and
// amount are required; direction wins over the legacy type column when both
// are set; a combined category is slash-split when no major is given.
type TransactionInput struct {
	Date          string           `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	Direction     string           `json:"direction"`
	Type          string           `json:"type"`
	Category      string           `json:"category"`
	MajorCategory string           `json:"major_category"`
	SubCategory   string           `json:"sub_category"`
	Description   string           `json:"description"`
	Account       string           `json:"account"`
	Remarks       string           `json:"remarks"`
}

// TransactionPatch updates a subset of transaction fields. Nil pointers leave
// the stored value untouched; unknown payload fields are dropped by the JSON
// decoder rather than applied.
type TransactionPatch struct {
	Date          *string          `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	Direction     *string          `json:"direction"`
	Type          *string          `json:"type"`
	Category      *string          `json:"category"`
	MajorCategory *string          `json:"major_category"`
	SubCategory   *string          `json:"sub_category"`
	Description   *string          `json:"description"`
	Account       *string          `json:"account"`
	Remarks       *string          `json:"remarks"`
}

// DailyEntry groups one day's transactions with income/expense totals.
type DailyEntry struct {
	Date         core.Date
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Transactions []core.Transaction
}

// DayCell is one calendar day's totals.
type DayCell struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// CalendarView is a month of day cells keyed by ISO date.
type CalendarView struct {
	Year  int
	Month int
	Days  map[string]*DayCell
}

// CategoryTree lists the majors observed in stored transactions with their
// sub categories, both sorted.
type CategoryTree struct {
	Majors []string
	Subs   map[string][]string
}

type TransactionService struct {
	store  ledger.Store
	events *amqp.Client
	logger *log.Logger
}

// NewTransactionService builds the service. events may be nil when no broker
// is configured.
func NewTransactionService(store ledger.Store, events *amqp.Client, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		logger: logger.WithComponent("transactions"),
	}
}

// Normalize coerces an input into a domain transaction, or reports the first
// offending field. Nothing is persisted here.
func (s *TransactionService) Normalize(in TransactionInput) (core.Transaction, error) {
	if in.Date == "" {
		return core.Transaction{}, core.MissingFieldError("date")
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, core.NewValidationError("date", err.Error())
	}
	if in.Amount == nil {
		return core.Transaction{}, core.MissingFieldError("amount")
	}

	direction := in.Direction
	if direction == "" {
		direction = in.Type
	}

	tx := core.Transaction{
		Date:          date,
		Amount:        *in.Amount,
		Direction:     core.NormalizeDirection(direction),
		MajorCategory: in.MajorCategory,
		SubCategory:   in.SubCategory,
		Category:      in.Category,
		Description:   in.Description,
		Account:       in.Account,
		Remarks:       in.Remarks,
	}
	if tx.MajorCategory == "" && tx.Category != "" {
		major, sub := core.SplitCategory(tx.Category)
		tx.MajorCategory = major
		if sub != "" {
			tx.SubCategory = sub
		}
	}
	return tx, nil
}

// CreateBulk normalizes the whole batch before touching the store, so a bad
// row rejects the batch without partial writes.
func (s *TransactionService) CreateBulk(ctx context.Context, inputs []TransactionInput) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(inputs))
	for i, in := range inputs {
		tx, err := s.Normalize(in)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}

	created, err := s.store.InsertTransactions(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}

	for _, tx := range created {
		if err := s.events.Publish(ctx, amqp.EventTransactionCreated, tx.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish create event", "id", tx.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Created transactions", "count", len(created))
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Update applies a patch to a stored transaction. Patched date, amount and
// direction are re-normalized. Returns nil when the id is unknown.
func (s *TransactionService) Update(ctx context.Context, id int64, patch TransactionPatch) (*core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	tx := *existing
	if patch.Date != nil {
		date, err := core.ParseDate(*patch.Date)
		if err != nil {
			return nil, core.NewValidationError("date", err.Error())
		}
		tx.Date = date
	}
	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}
	if patch.Direction != nil {
		tx.Direction = core.NormalizeDirection(*patch.Direction)
	} else if patch.Type != nil {
		tx.Direction = core.NormalizeDirection(*patch.Type)
	}
	if patch.Category != nil {
		tx.Category = *patch.Category
	}
	if patch.MajorCategory != nil {
		tx.MajorCategory = *patch.MajorCategory
	}
	if patch.SubCategory != nil {
		tx.SubCategory = *patch.SubCategory
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	if patch.Account != nil {
		tx.Account = *patch.Account
	}
	if patch.Remarks != nil {
		tx.Remarks = *patch.Remarks
	}

	ok, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if ok {
		if err := s.events.Publish(ctx, amqp.EventTransactionDeleted, id); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish delete event", "id", id, "error", err)
		}
	}
	return ok, nil
}

func (s *TransactionService) Query(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, int, error) {
	return s.store.QueryTransactions(ctx, f)
}

// Daily groups transactions in [start, end] by day, newest day first.
func (s *TransactionService) Daily(ctx context.Context, start, end core.Date) ([]DailyEntry, error) {
	items, _, err := s.store.QueryTransactions(ctx, ledger.TransactionFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DailyEntry)
	for _, tx := range items {
		key := tx.Date.String()
		entry, ok := byDay[key]
		if !ok {
			entry = &DailyEntry{Date: tx.Date}
			byDay[key] = entry
		}
		if tx.Direction == core.Income {
			entry.Income = entry.Income.Add(tx.Amount)
		} else {
			entry.Expense = entry.Expense.Add(tx.Amount)
		}
		entry.Transactions = append(entry.Transactions, tx)
	}

	out := make([]DailyEntry, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

// Calendar returns day-cell totals for one month.
func (s *TransactionService) Calendar(ctx context.Context, year, month int) (CalendarView, error) {
	start, end := core.MonthBounds(year, month)
	items, _, err := s.store.QueryTransactions(ctx, ledger.TransactionFilter{Start: start, End: end})
	if err != nil {
		return CalendarView{}, err
	}

	view := CalendarView{Year: year, Month: month, Days: make(map[string]*DayCell)}
	for _, tx := range items {
		key := tx.Date.String()
		cell, ok := view.Days[key]
		if !ok {
			cell = &DayCell{}
			view.Days[key] = cell
		}
		if tx.Direction == core.Income {
			cell.Income = cell.Income.Add(tx.Amount)
		} else {
			cell.Expense = cell.Expense.Add(tx.Amount)
		}
		cell.Count++
	}
	return view, nil
}

// CategoriesInUse reports the majors seen in stored transactions with their
// sub categories, sorted and deduplicated.
func (s *TransactionService) CategoriesInUse(ctx context.Context) (CategoryTree, error) {
	items, _, err := s.store.QueryTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		return CategoryTree{}, err
	}

	subSets := make(map[string]map[string]struct{})
	for _, tx := range items {
		major := tx.MajorCategory
		if major == "" {
			major = tx.Category
		}
		if major == "" {
			continue
		}
		if _, ok := subSets[major]; !ok {
			subSets[major] = make(map[string]struct{})
		}
		if tx.SubCategory != "" {
			subSets[major][tx.SubCategory] = struct{}{}
		}
	}

	tree := CategoryTree{Subs: make(map[string][]string, len(subSets))}
	for major, subs := range subSets {
		tree.Majors = append(tree.Majors, major)
		sorted := make([]string, 0, len(subs))
		for sub := range subs {
			sorted = append(sorted, sub)
		}
		sort.Strings(sorted)
		tree.Subs[major] = sorted
	}
	sort.Strings(tree.Majors)
	return tree, nil
}
