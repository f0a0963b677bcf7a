// Package core holds the ledger domain: dates, amounts, transactions,
// recurring definitions and the projection logic that ties them together.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount from user input. Thousands separators
// (commas) are stripped first, so "1,234.50" and "1234.50" are equivalent.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount: empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %q", s)
	}
	return d, nil
}
