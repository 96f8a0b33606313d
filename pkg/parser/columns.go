package parser

import (
	"strings"

	"github.com/yurifrl/gastos/pkg/models"
)

type synonym struct {
	pattern   string
	canonical string
}

// synonyms is ordered: a column takes the first canonical name whose pattern
// is a substring of its lowercased header.
var synonyms = []synonym{
	{"concepto", models.ColumnConcept},
	{"concept", models.ColumnConcept},
	{"description", models.ColumnConcept},
	{"tarjeta", models.ColumnCard},
	{"card", models.ColumnCard},
	{"fecha", models.ColumnDate},
	{"date", models.ColumnDate},
	{"importe", models.ColumnAmount},
	{"amount", models.ColumnAmount},
	{"cantidad", models.ColumnAmount},
}

func canonicalFor(header string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(header))
	for _, s := range synonyms {
		if strings.Contains(lower, s.pattern) {
			return s.canonical, true
		}
	}
	return "", false
}

// mapColumns renames the header to canonical names. When two columns claim the
// same canonical name the leftmost one wins and the other keeps its header.
func mapColumns(header []string) []string {
	out := make([]string, len(header))
	taken := map[string]bool{}
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
		canonical, ok := canonicalFor(h)
		if !ok || taken[canonical] {
			continue
		}
		taken[canonical] = true
		out[i] = canonical
	}
	return out
}

// normalizeTable maps the header, checks the required columns and drops rows
// without a concept.
func normalizeTable(header []string, rows [][]string) (*models.RawTable, error) {
	table := &models.RawTable{Columns: mapColumns(header)}

	for _, required := range []string{models.ColumnConcept, models.ColumnAmount} {
		if table.Index(required) < 0 {
			return nil, &MissingColumnError{Column: required, Found: header}
		}
	}

	for _, row := range rows {
		cells := make([]string, len(table.Columns))
		copy(cells, row)
		if strings.TrimSpace(table.Value(cells, models.ColumnConcept)) == "" {
			continue
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}
