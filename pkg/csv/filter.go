package csv

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

// Filter narrows a ledger view. Zero fields do not filter.
type Filter struct {
	Start    time.Time
	End      time.Time
	Min      decimal.NullDecimal
	Max      decimal.NullDecimal
	Concept  string
	Category string
}

// ParseFilter builds a Filter from its textual form: dates as YYYY-MM-DD,
// amounts as plain decimals. Empty strings leave the field unset.
func ParseFilter(start, end, minAmount, maxAmount, concept, category string) (Filter, error) {
	f := Filter{Concept: concept, Category: category}
	var err error
	if start != "" {
		if f.Start, err = time.Parse(models.DateLayout, start); err != nil {
			return f, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if f.End, err = time.Parse(models.DateLayout, end); err != nil {
			return f, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}
	if minAmount != "" {
		d, err := decimal.NewFromString(minAmount)
		if err != nil {
			return f, fmt.Errorf("invalid min amount %q: %w", minAmount, err)
		}
		f.Min = decimal.NewNullDecimal(d)
	}
	if maxAmount != "" {
		d, err := decimal.NewFromString(maxAmount)
		if err != nil {
			return f, fmt.Errorf("invalid max amount %q: %w", maxAmount, err)
		}
		f.Max = decimal.NewNullDecimal(d)
	}
	return f, nil
}

// Func returns the filter as a predicate. Undated rows never pass a date
// bound.
func (f Filter) Func() FilterFunc {
	return func(t models.Transaction) bool {
		if !f.Start.IsZero() && (!t.HasDate() || t.Date.Before(f.Start)) {
			return false
		}
		if !f.End.IsZero() && (!t.HasDate() || t.Date.After(f.End)) {
			return false
		}
		if f.Min.Valid && t.Amount.LessThan(f.Min.Decimal) {
			return false
		}
		if f.Max.Valid && t.Amount.GreaterThan(f.Max.Decimal) {
			return false
		}
		if f.Concept != "" && !strings.Contains(strings.ToLower(t.Concept), strings.ToLower(f.Concept)) {
			return false
		}
		if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
			return false
		}
		return true
	}
}

// Apply returns the transactions accepted by filter, or all of them when
// filter is nil.
func Apply(txs []models.Transaction, filter FilterFunc) []models.Transaction {
	if filter == nil {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, t := range txs {
		if filter(t) {
			out = append(out, t)
		}
	}
	return out
}
