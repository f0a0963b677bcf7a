package core

// ProjectOccurrences expands a fixed-expense definition into one occurrence
// per calendar month intersecting the inclusive range [start, end]. Each
// occurrence falls on the definition's day-of-month, clamped to the length of
// the month, and is stamped with the definition's source tag. Occurrences
// whose clamped date lands outside the range (possible only in the boundary
// months) are dropped.
//
// The function is pure and deterministic, which is what makes the
// delete-then-regenerate policy of the lifecycle manager safe.
func ProjectOccurrences(def FixedExpense, start, end Date) []Transaction {
	months := MonthsBetween(start, end)
	if len(months) == 0 {
		return nil
	}
	out := make([]Transaction, 0, len(months))
	for _, ym := range months {
		day := ClampDay(ym.Year, ym.Month, def.DayOfMonth)
		occ := NewDate(ym.Year, ym.Month, day)
		if occ.Before(start.Time) || occ.After(end.Time) {
			continue
		}
		out = append(out, Transaction{
			Date:          occ,
			Amount:        def.Amount,
			Direction:     Expense,
			MajorCategory: def.MajorCategory,
			SubCategory:   def.SubCategory,
			Description:   def.Description,
			Source:        def.SourceTag(),
		})
	}
	return out
}
