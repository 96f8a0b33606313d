// Package normalize converts the loosely formatted amounts and dates found in
// bank exports into typed values.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	currencySymbols = regexp.MustCompile(`[€$£\s\x{00A0}]`)
	currencySuffix  = regexp.MustCompile(`(?i)(eur|usd|gbp)$`)
)

// dateLayouts are tried in order, the first successful parse wins.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"2/1/06",
	"2-1-06",
}

// ParseAmount reads a locale-formatted amount. A comma marks Spanish
// formatting ("1.234,56"): dots are thousands separators and the comma is the
// decimal mark. Anything unparseable becomes zero.
func ParseAmount(s string) decimal.Decimal {
	clean := currencySymbols.ReplaceAllString(s, "")
	clean = currencySuffix.ReplaceAllString(clean, "")
	clean = strings.TrimPrefix(clean, "+")
	if clean == "" {
		return decimal.Zero
	}

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDate returns the calendar date of s and whether any layout matched.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
