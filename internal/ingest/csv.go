// Package ingest parses external CSV exports into ledger records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"moneycal/internal/core"
)

// Record is one parsed CSV row. Categories are already split: when only a
// legacy combined "category" value is present it is slash-split into
// major/sub, keeping the combined value in Category.
type Record struct {
	Date          core.Date
	Amount        decimal.Decimal
	Category      string
	MajorCategory string
	SubCategory   string
	Direction     string
	Description   string
	Account       string
	Remarks       string
}

var requiredColumns = []string{"date", "amount"}

// ParseTransactions reads a CSV document with a header row. Required columns
// are date and amount; category, major_category, sub_category, direction,
// type, description, account and remarks/note are optional.
func ParseTransactions(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Record
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		for _, col := range requiredColumns {
			if field(row, col) == "" {
				return nil, fmt.Errorf("row %d: missing required column %q", line, col)
			}
		}

		date, err := core.ParseDate(field(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		amount, err := core.ParseAmount(field(row, "amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		rec := Record{
			Date:          date,
			Amount:        amount,
			Category:      field(row, "category"),
			MajorCategory: field(row, "major_category"),
			SubCategory:   field(row, "sub_category"),
			Description:   field(row, "description"),
			Account:       field(row, "account"),
			Remarks:       field(row, "remarks"),
		}
		if rec.Remarks == "" {
			rec.Remarks = field(row, "note")
		}

		// direction wins over the legacy type column when both are present.
		rec.Direction = field(row, "direction")
		if rec.Direction == "" {
			rec.Direction = field(row, "type")
		}

		if rec.MajorCategory == "" && rec.Category != "" {
			major, sub := core.SplitCategory(rec.Category)
			rec.MajorCategory = major
			if sub != "" {
				rec.SubCategory = sub
			}
		}

		out = append(out, rec)
	}
	return out, nil
}
