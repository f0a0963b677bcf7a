package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Direction classifies a transaction's cash-flow sign.
type Direction string

const (
	Income  Direction = "Income"
	Expense Direction = "Expense"
)

// FrequencyMonthly is the only savings frequency that contributes to
// forecasts. Other values are stored as-is but contribute nothing.
const FrequencyMonthly = "monthly"

// NormalizeDirection canonicalizes a free-text direction value. Values
// containing "income" or 수입 become Income, values containing "expense" or
// 지출 become Expense. Anything else is kept as a capitalized label so
// user-defined directions survive round-trips.
func NormalizeDirection(raw string) Direction {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return ""
	}
	switch {
	case strings.Contains(lower, "income"), strings.Contains(lower, "수입"):
		return Income
	case strings.Contains(lower, "expense"), strings.Contains(lower, "지출"):
		return Expense
	}
	r, size := utf8.DecodeRuneInString(lower)
	return Direction(string(unicode.ToUpper(r)) + lower[size:])
}

// SplitCategory splits a legacy combined "major/sub" label on the first
// slash. A value without a slash maps entirely to the major side.
func SplitCategory(combined string) (major, sub string) {
	major, sub, found := strings.Cut(combined, "/")
	major = strings.TrimSpace(major)
	if !found {
		return major, ""
	}
	return major, strings.TrimSpace(sub)
}

// ValidationError reports a field that failed coercion or a required field
// that is missing. It is always raised before any persistent mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// MissingFieldError reports a required field that was not provided.
func MissingFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "required"}
}

// Transaction is a single dated monetary event. The amount carries magnitude
// only; the cash-flow sign lives in Direction.
type Transaction struct {
	ID            int64
	Date          Date
	Amount        decimal.Decimal
	Direction     Direction
	MajorCategory string
	SubCategory   string
	Category      string // legacy combined "major/sub" label
	Description   string
	Account       string
	Remarks       string
	Source        string // "fixed:<id>" for generated occurrences, empty otherwise
}

// Generated reports whether the transaction was materialized from a
// recurring definition rather than entered directly.
func (t Transaction) Generated() bool {
	return t.Source != ""
}

// FixedSourceTag is the source tag stamped on every occurrence generated
// from the fixed-expense definition with the given id.
func FixedSourceTag(id int64) string {
	return "fixed:" + strconv.FormatInt(id, 10)
}

// FixedExpense is a recurring expense template. Every live definition owns a
// fully materialized set of Transaction occurrences tagged with its id.
type FixedExpense struct {
	ID            int64
	MajorCategory string
	SubCategory   string
	Description   string
	Amount        decimal.Decimal
	StartDate     Date
	EndDate       Date
	DayOfMonth    int
	Active        bool
}

// SourceTag returns the tag linking generated occurrences back to this
// definition.
func (fe FixedExpense) SourceTag() string {
	return FixedSourceTag(fe.ID)
}

func (fe FixedExpense) Validate() error {
	if strings.TrimSpace(fe.MajorCategory) == "" {
		return MissingFieldError("major_category")
	}
	if strings.TrimSpace(fe.SubCategory) == "" {
		return MissingFieldError("sub_category")
	}
	if !fe.Amount.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	if fe.StartDate.IsZero() {
		return MissingFieldError("start_date")
	}
	if fe.EndDate.IsZero() {
		return MissingFieldError("end_date")
	}
	if fe.StartDate.After(fe.EndDate.Time) {
		return NewValidationError("end_date", "must not precede start_date")
	}
	if fe.DayOfMonth < 1 || fe.DayOfMonth > 31 {
		return NewValidationError("day_of_month", "must be between 1 and 31")
	}
	return nil
}

// Saving is a recurring contribution template. It is never materialized into
// transactions; forecasts are computed on demand.
type Saving struct {
	ID                 int64
	Name               string
	Kind               string
	InitialBalance     decimal.Decimal
	ContributionAmount decimal.Decimal
	StartDate          Date // zero means unset
	EndDate            Date // zero means open-ended
	DayOfMonth         int  // 0 means "use start date's day"
	Frequency          string
	Withdrawn          bool
	Active             bool
}

func (s Saving) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return MissingFieldError("name")
	}
	if strings.TrimSpace(s.Kind) == "" {
		return MissingFieldError("kind")
	}
	return nil
}
