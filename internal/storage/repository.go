// Package storage provides the SQLite-backed ledger store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"moneycal/internal/core"
	"moneycal/internal/ledger"
)

// Store persists the ledger in a SQLite database. Amounts are stored as
// decimal strings so no precision is lost on the round trip.
type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// Open opens the database at path, runs migrations and returns a ready store.
func Open(dbPath string) (*Store, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer keeps us clear of SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, date, amount, direction, major_category, sub_category, category, description, account, remarks, source`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx           core.Transaction
		date, amount string
	)
	err := row.Scan(&tx.ID, &date, &amount, &tx.Direction, &tx.MajorCategory,
		&tx.SubCategory, &tx.Category, &tx.Description, &tx.Account, &tx.Remarks, &tx.Source)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date: %w", err)
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored amount: %w", err)
	}
	return tx, nil
}

func dateColumn(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDateColumn(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func insertTransactionTx(ctx context.Context, tx *sql.Tx, t *core.Transaction) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO transactions
		(date, amount, direction, major_category, sub_category, category, description, account, remarks, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date.String(), t.Amount.String(), string(t.Direction), t.MajorCategory,
		t.SubCategory, t.Category, t.Description, t.Account, t.Remarks, t.Source)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return nil
}

func (s *Store) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	for i := range out {
		if err := insertTransactionTx(ctx, dbTx, &out[i]); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET
		date = ?, amount = ?, direction = ?, major_category = ?, sub_category = ?,
		category = ?, description = ?, account = ?, remarks = ?, source = ?
		WHERE id = ?`,
		tx.Date.String(), tx.Amount.String(), string(tx.Direction), tx.MajorCategory,
		tx.SubCategory, tx.Category, tx.Description, tx.Account, tx.Remarks, tx.Source, tx.ID)
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func filterClauses(f ledger.TransactionFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if !f.Start.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.End.String())
	}
	if f.Direction != "" {
		clauses = append(clauses, "lower(direction) LIKE '%' || lower(?) || '%'")
		args = append(args, f.Direction)
	}
	if f.Search != "" {
		clauses = append(clauses, `(lower(major_category) LIKE '%' || lower(?) || '%'
			OR lower(sub_category) LIKE '%' || lower(?) || '%'
			OR lower(description) LIKE '%' || lower(?) || '%'
			OR lower(category) LIKE '%' || lower(?) || '%')`)
		args = append(args, f.Search, f.Search, f.Search, f.Search)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) QueryTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := filterClauses(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC, id ASC`
	queryArgs := args
	if f.PerPage > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		queryArgs = append(append([]any{}, args...), f.PerPage, (page-1)*f.PerPage)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, total, nil
}

func (s *Store) TransactionDateRange(ctx context.Context) (core.Date, core.Date, bool, error) {
	var minDate, maxDate sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM transactions`).Scan(&minDate, &maxDate)
	if err != nil {
		return core.Date{}, core.Date{}, false, fmt.Errorf("transaction date range: %w", err)
	}
	if !minDate.Valid || !maxDate.Valid {
		return core.Date{}, core.Date{}, false, nil
	}
	start, err := core.ParseDate(minDate.String)
	if err != nil {
		return core.Date{}, core.Date{}, false, fmt.Errorf("stored date: %w", err)
	}
	end, err := core.ParseDate(maxDate.String)
	if err != nil {
		return core.Date{}, core.Date{}, false, fmt.Errorf("stored date: %w", err)
	}
	return start, end, true, nil
}

func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("delete by source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// ReplaceGenerated swaps all rows carrying source for the given set inside a
// single database transaction, so readers never observe a partial swap.
func (s *Store) ReplaceGenerated(ctx context.Context, source string, txs []core.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE source = ?`, source); err != nil {
		return fmt.Errorf("delete by source: %w", err)
	}
	for i := range txs {
		tx := txs[i]
		tx.Source = source
		if err := insertTransactionTx(ctx, dbTx, &tx); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const fixedExpenseColumns = `id, major_category, sub_category, description, amount, start_date, end_date, day_of_month, active`

func scanFixedExpense(row rowScanner) (core.FixedExpense, error) {
	var (
		def                     core.FixedExpense
		amount, startEnc, endEnc string
		active                  int
	)
	err := row.Scan(&def.ID, &def.MajorCategory, &def.SubCategory, &def.Description,
		&amount, &startEnc, &endEnc, &def.DayOfMonth, &active)
	if err != nil {
		return core.FixedExpense{}, err
	}
	def.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("stored amount: %w", err)
	}
	def.StartDate, err = core.ParseDate(startEnc)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("stored start date: %w", err)
	}
	def.EndDate, err = core.ParseDate(endEnc)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("stored end date: %w", err)
	}
	def.Active = active != 0
	return def, nil
}

func (s *Store) CreateFixedExpense(ctx context.Context, def core.FixedExpense) (core.FixedExpense, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO fixed_expenses
		(major_category, sub_category, description, amount, start_date, end_date, day_of_month, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.MajorCategory, def.SubCategory, def.Description, def.Amount.String(),
		def.StartDate.String(), def.EndDate.String(), def.DayOfMonth, boolToInt(def.Active))
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("insert fixed expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("last insert id: %w", err)
	}
	def.ID = id
	return def, nil
}

func (s *Store) GetFixedExpense(ctx context.Context, id int64) (*core.FixedExpense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fixedExpenseColumns+` FROM fixed_expenses WHERE id = ?`, id)
	def, err := scanFixedExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fixed expense: %w", err)
	}
	return &def, nil
}

func (s *Store) UpdateFixedExpense(ctx context.Context, def core.FixedExpense) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE fixed_expenses SET
		major_category = ?, sub_category = ?, description = ?, amount = ?,
		start_date = ?, end_date = ?, day_of_month = ?, active = ?
		WHERE id = ?`,
		def.MajorCategory, def.SubCategory, def.Description, def.Amount.String(),
		def.StartDate.String(), def.EndDate.String(), def.DayOfMonth, boolToInt(def.Active), def.ID)
	if err != nil {
		return false, fmt.Errorf("update fixed expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) listFixedExpenses(ctx context.Context, query string, args ...any) ([]core.FixedExpense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpense
	for rows.Next() {
		def, err := scanFixedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixed expenses: %w", err)
	}
	return out, nil
}

func (s *Store) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return s.listFixedExpenses(ctx,
		`SELECT `+fixedExpenseColumns+` FROM fixed_expenses ORDER BY id ASC`)
}

func (s *Store) ListActiveFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return s.listFixedExpenses(ctx,
		`SELECT `+fixedExpenseColumns+` FROM fixed_expenses WHERE active = 1 ORDER BY id ASC`)
}

// DeleteFixedExpenseCascade removes a definition and its generated rows in one
// database transaction.
func (s *Store) DeleteFixedExpenseCascade(ctx context.Context, id int64) (bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `DELETE FROM fixed_expenses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete fixed expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	tag := core.FixedSourceTag(id)
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE source = ?`, tag); err != nil {
		return false, fmt.Errorf("delete generated transactions: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

const savingColumns = `id, name, kind, initial_balance, contribution_amount, start_date, end_date, day_of_month, frequency, withdrawn, active`

func scanSaving(row rowScanner) (core.Saving, error) {
	var (
		sv                                 core.Saving
		initial, contribution, startEnc, endEnc string
		withdrawn, active                  int
	)
	err := row.Scan(&sv.ID, &sv.Name, &sv.Kind, &initial, &contribution,
		&startEnc, &endEnc, &sv.DayOfMonth, &sv.Frequency, &withdrawn, &active)
	if err != nil {
		return core.Saving{}, err
	}
	sv.InitialBalance, err = decimal.NewFromString(initial)
	if err != nil {
		return core.Saving{}, fmt.Errorf("stored initial balance: %w", err)
	}
	sv.ContributionAmount, err = decimal.NewFromString(contribution)
	if err != nil {
		return core.Saving{}, fmt.Errorf("stored contribution: %w", err)
	}
	sv.StartDate, err = parseDateColumn(startEnc)
	if err != nil {
		return core.Saving{}, fmt.Errorf("stored start date: %w", err)
	}
	sv.EndDate, err = parseDateColumn(endEnc)
	if err != nil {
		return core.Saving{}, fmt.Errorf("stored end date: %w", err)
	}
	sv.Withdrawn = withdrawn != 0
	sv.Active = active != 0
	return sv, nil
}

func (s *Store) CreateSaving(ctx context.Context, sv core.Saving) (core.Saving, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO savings
		(name, kind, initial_balance, contribution_amount, start_date, end_date, day_of_month, frequency, withdrawn, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.Name, sv.Kind, sv.InitialBalance.String(), sv.ContributionAmount.String(),
		dateColumn(sv.StartDate), dateColumn(sv.EndDate), sv.DayOfMonth, sv.Frequency,
		boolToInt(sv.Withdrawn), boolToInt(sv.Active))
	if err != nil {
		return core.Saving{}, fmt.Errorf("insert saving: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Saving{}, fmt.Errorf("last insert id: %w", err)
	}
	sv.ID = id
	return sv, nil
}

func (s *Store) GetSaving(ctx context.Context, id int64) (*core.Saving, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+savingColumns+` FROM savings WHERE id = ?`, id)
	sv, err := scanSaving(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saving: %w", err)
	}
	return &sv, nil
}

func (s *Store) UpdateSaving(ctx context.Context, sv core.Saving) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE savings SET
		name = ?, kind = ?, initial_balance = ?, contribution_amount = ?,
		start_date = ?, end_date = ?, day_of_month = ?, frequency = ?, withdrawn = ?, active = ?
		WHERE id = ?`,
		sv.Name, sv.Kind, sv.InitialBalance.String(), sv.ContributionAmount.String(),
		dateColumn(sv.StartDate), dateColumn(sv.EndDate), sv.DayOfMonth, sv.Frequency,
		boolToInt(sv.Withdrawn), boolToInt(sv.Active), sv.ID)
	if err != nil {
		return false, fmt.Errorf("update saving: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteSaving(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM savings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete saving: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) listSavings(ctx context.Context, query string, args ...any) ([]core.Saving, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []core.Saving
	for rows.Next() {
		sv, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		out = append(out, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate savings: %w", err)
	}
	return out, nil
}

func (s *Store) ListSavings(ctx context.Context) ([]core.Saving, error) {
	return s.listSavings(ctx, `SELECT `+savingColumns+` FROM savings ORDER BY id ASC`)
}

func (s *Store) ListActiveSavings(ctx context.Context) ([]core.Saving, error) {
	return s.listSavings(ctx, `SELECT `+savingColumns+` FROM savings WHERE active = 1 ORDER BY id ASC`)
}

// ReplaceCategories overwrites the category vocabulary in one transaction.
func (s *Store) ReplaceCategories(ctx context.Context, majors, subs []string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM category_majors`); err != nil {
		return fmt.Errorf("clear majors: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM category_subs`); err != nil {
		return fmt.Errorf("clear subs: %w", err)
	}
	for _, name := range majors {
		if _, err := dbTx.ExecContext(ctx, `INSERT INTO category_majors (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert major: %w", err)
		}
	}
	for _, name := range subs {
		if _, err := dbTx.ExecContext(ctx, `INSERT INTO category_subs (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert sub: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) GetCategories(ctx context.Context) ([]string, []string, error) {
	majors, err := s.listNames(ctx, `SELECT DISTINCT name FROM category_majors ORDER BY name ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("list majors: %w", err)
	}
	subs, err := s.listNames(ctx, `SELECT DISTINCT name FROM category_subs ORDER BY name ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("list subs: %w", err)
	}
	return majors, subs, nil
}

func (s *Store) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
