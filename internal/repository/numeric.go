package repository

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NUMERIC columns are read as ::text and written as strings so no precision
// is lost at the database boundary.

func parseNumeric(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric %q: %w", s, err)
	}
	return d, nil
}
