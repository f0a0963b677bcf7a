// Package memory provides a mutex-guarded in-memory ledger store. It is the
// default backend for local runs and the substrate for service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	txs      []core.Transaction
	nextTxID int64

	fixed       []core.FixedExpense
	nextFixedID int64

	savings      []core.Saving
	nextSavingID int64

	majors []string
	subs   []string
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{nextTxID: 1, nextFixedID: 1, nextSavingID: 1}
}

func (s *Store) Close() error { return nil }

// --- transactions ---

func (s *Store) InsertTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(txs), nil
}

func (s *Store) insertLocked(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.ID = s.nextTxID
		s.nextTxID++
		s.txs = append(s.txs, tx)
		out[i] = tx
	}
	return out
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			cp := tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == tx.ID {
			s.txs[i] = tx
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func matches(tx core.Transaction, f ledger.TransactionFilter) bool {
	if !f.Start.IsZero() && tx.Date.Before(f.Start.Time) {
		return false
	}
	if !f.End.IsZero() && tx.Date.After(f.End.Time) {
		return false
	}
	if f.Direction != "" {
		if !strings.Contains(strings.ToLower(string(tx.Direction)), strings.ToLower(f.Direction)) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		for _, hay := range []string{tx.MajorCategory, tx.SubCategory, tx.Description, tx.Category} {
			if strings.Contains(strings.ToLower(hay), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Store) QueryTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []core.Transaction
	for _, tx := range s.txs {
		if matches(tx, f) {
			filtered = append(filtered, tx)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.After(filtered[j].Date.Time)
		}
		return filtered[i].ID < filtered[j].ID
	})

	total := len(filtered)
	if f.PerPage > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * f.PerPage
		if offset >= total {
			return nil, total, nil
		}
		end := offset + f.PerPage
		if end > total {
			end = total
		}
		filtered = filtered[offset:end]
	}
	out := make([]core.Transaction, len(filtered))
	copy(out, filtered)
	return out, total, nil
}

func (s *Store) TransactionDateRange(_ context.Context) (core.Date, core.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.txs) == 0 {
		return core.Date{}, core.Date{}, false, nil
	}
	min, max := s.txs[0].Date, s.txs[0].Date
	for _, tx := range s.txs[1:] {
		if tx.Date.Before(min.Time) {
			min = tx.Date
		}
		if tx.Date.After(max.Time) {
			max = tx.Date
		}
	}
	return min, max, true, nil
}

func (s *Store) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteBySourceLocked(source), nil
}

func (s *Store) deleteBySourceLocked(source string) int {
	kept := s.txs[:0]
	removed := 0
	for _, tx := range s.txs {
		if tx.Source == source {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	s.txs = kept
	return removed
}

func (s *Store) ReplaceGenerated(_ context.Context, source string, txs []core.Transaction) error {
	stamped := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Source = source
		stamped[i] = tx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteBySourceLocked(source)
	s.insertLocked(stamped)
	return nil
}

// --- fixed expenses ---

func (s *Store) CreateFixedExpense(_ context.Context, fe core.FixedExpense) (core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fe.ID = s.nextFixedID
	s.nextFixedID++
	s.fixed = append(s.fixed, fe)
	return fe, nil
}

func (s *Store) GetFixedExpense(_ context.Context, id int64) (*core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fe := range s.fixed {
		if fe.ID == id {
			cp := fe
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateFixedExpense(_ context.Context, fe core.FixedExpense) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fixed {
		if s.fixed[i].ID == fe.ID {
			s.fixed[i] = fe
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListFixedExpenses(_ context.Context) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FixedExpense, len(s.fixed))
	copy(out, s.fixed)
	return out, nil
}

func (s *Store) ListActiveFixedExpenses(_ context.Context) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.FixedExpense
	for _, fe := range s.fixed {
		if fe.Active {
			out = append(out, fe)
		}
	}
	return out, nil
}

func (s *Store) DeleteFixedExpenseCascade(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fixed {
		if s.fixed[i].ID == id {
			s.deleteBySourceLocked(core.FixedSourceTag(id))
			s.fixed = append(s.fixed[:i], s.fixed[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- savings ---

func (s *Store) CreateSaving(_ context.Context, sv core.Saving) (core.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv.ID = s.nextSavingID
	s.nextSavingID++
	s.savings = append(s.savings, sv)
	return sv, nil
}

func (s *Store) GetSaving(_ context.Context, id int64) (*core.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sv := range s.savings {
		if sv.ID == id {
			cp := sv
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateSaving(_ context.Context, sv core.Saving) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.savings {
		if s.savings[i].ID == sv.ID {
			s.savings[i] = sv
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteSaving(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.savings {
		if s.savings[i].ID == id {
			s.savings = append(s.savings[:i], s.savings[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListSavings(_ context.Context) ([]core.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Saving, len(s.savings))
	copy(out, s.savings)
	return out, nil
}

func (s *Store) ListActiveSavings(_ context.Context) ([]core.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Saving
	for _, sv := range s.savings {
		if sv.Active {
			out = append(out, sv)
		}
	}
	return out, nil
}

// --- category vocabulary ---

func (s *Store) ReplaceCategories(_ context.Context, majors, subs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.majors = append([]string(nil), majors...)
	s.subs = append([]string(nil), subs...)
	return nil
}

func (s *Store) GetCategories(_ context.Context) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedUnique(s.majors), sortedUnique(s.subs), nil
}

func sortedUnique(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
