// Package ledger defines the store ports consumed by the service layer.
// Implementations live in internal/ledger/memory (default backend, also the
// test substrate) and internal/storage (SQLite).
package ledger

import (
	"context"

	"moneycal/internal/core"
)

// TransactionFilter narrows a transaction query. Zero dates mean unbounded;
// Direction and Search are case-insensitive substring matches, conjunctive.
// Page is 1-based. PerPage <= 0 disables pagination.
type TransactionFilter struct {
	Start     core.Date
	End       core.Date
	Direction string
	Search    string
	Page      int
	PerPage   int
}

type (
	TransactionStore interface {
		// InsertTransactions persists a batch and returns it with assigned ids.
		InsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		// GetTransaction returns nil when the id is unknown.
		GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)
		// UpdateTransaction overwrites the stored row for tx.ID. Returns
		// false when the id is unknown.
		UpdateTransaction(ctx context.Context, tx core.Transaction) (bool, error)
		// DeleteTransaction returns false when the id is unknown.
		DeleteTransaction(ctx context.Context, id int64) (bool, error)
		// QueryTransactions returns the filtered page ordered by date
		// descending (ids ascending on ties) plus the total match count
		// before pagination.
		QueryTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, int, error)
		// TransactionDateRange reports the min/max transaction dates.
		// ok is false when the store holds no transactions.
		TransactionDateRange(ctx context.Context) (min, max core.Date, ok bool, err error)
		// DeleteBySource removes every transaction carrying the source tag.
		DeleteBySource(ctx context.Context, source string) (int, error)
		// ReplaceGenerated atomically swaps the occurrence set for a source
		// tag: all existing rows with the tag are removed and the fresh
		// batch inserted, fully or not at all.
		ReplaceGenerated(ctx context.Context, source string, txs []core.Transaction) error
	}

	FixedExpenseStore interface {
		CreateFixedExpense(ctx context.Context, fe core.FixedExpense) (core.FixedExpense, error)
		// GetFixedExpense returns nil when the id is unknown.
		GetFixedExpense(ctx context.Context, id int64) (*core.FixedExpense, error)
		// UpdateFixedExpense returns false when the id is unknown.
		UpdateFixedExpense(ctx context.Context, fe core.FixedExpense) (bool, error)
		ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error)
		ListActiveFixedExpenses(ctx context.Context) ([]core.FixedExpense, error)
		// DeleteFixedExpenseCascade removes the definition together with
		// every transaction tagged with its source, as one unit. Returns
		// false when the id is unknown.
		DeleteFixedExpenseCascade(ctx context.Context, id int64) (bool, error)
	}

	SavingStore interface {
		CreateSaving(ctx context.Context, s core.Saving) (core.Saving, error)
		GetSaving(ctx context.Context, id int64) (*core.Saving, error)
		UpdateSaving(ctx context.Context, s core.Saving) (bool, error)
		DeleteSaving(ctx context.Context, id int64) (bool, error)
		ListSavings(ctx context.Context) ([]core.Saving, error)
		ListActiveSavings(ctx context.Context) ([]core.Saving, error)
	}

	// CategoryStore persists the user-curated vocabulary lists. Writes
	// replace the whole set; reads come back sorted and deduplicated.
	CategoryStore interface {
		ReplaceCategories(ctx context.Context, majors, subs []string) error
		GetCategories(ctx context.Context) (majors, subs []string, err error)
	}
)

// Store is the full ledger boundary: one logical store accessed by
// request-scoped operations.
type Store interface {
	TransactionStore
	FixedExpenseStore
	SavingStore
	CategoryStore
	Close() error
}
