package parser

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/yurifrl/gastos/pkg/normalize"
)

// RawRow is one statement line recovered from a PDF page.
type RawRow struct {
	Date    string
	Concept string
	Amount  string
}

// RowExtractor turns positioned words into rows. An extractor is used for a
// single document and may carry state from one page to the next.
type RowExtractor interface {
	ExtractRows(page Page) []RawRow
}

// Layout describes one family of PDF statements.
type Layout interface {
	Name() string
	NewExtractor() RowExtractor
}

var (
	dayToken      = regexp.MustCompile(`^\d{2}$`)
	dateAndDetail = regexp.MustCompile(`^(\d{2})\s+(\p{L}+)\.?\s+(\d{4})\s*(.*)$`)
)

var spanishMonths = map[string]string{
	"ene": "01", "feb": "02", "mar": "03", "abr": "04", "may": "05", "jun": "06",
	"jul": "07", "ago": "08", "sep": "09", "oct": "10", "nov": "11", "dic": "12",
}

// ColumnLayout reads statements printed as a table with separate money in and
// money out columns, such as Trade Republic account statements.
type ColumnLayout struct {
	MoneyIn  []string
	MoneyOut []string
	Balance  []string
	// HeaderBuffer is subtracted from header left edges so right aligned
	// amounts that start slightly before their header still fall in the column.
	HeaderBuffer  float64
	LineTolerance float64
}

func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{
		MoneyIn:       []string{"ENTRADA", "INCOMING"},
		MoneyOut:      []string{"SALIDA", "OUTGOING"},
		Balance:       []string{"SALDO", "BALANCE"},
		HeaderBuffer:  5,
		LineTolerance: 3,
	}
}

func (l ColumnLayout) Name() string { return "columns" }

func (l ColumnLayout) NewExtractor() RowExtractor {
	return &columnExtractor{layout: l}
}

type boundaries struct {
	moneyIn  float64
	moneyOut float64
	balance  float64
}

type columnExtractor struct {
	layout ColumnLayout
	bounds *boundaries
}

func (e *columnExtractor) ExtractRows(page Page) []RawRow {
	if b, ok := e.layout.findBoundaries(page.Words); ok {
		e.bounds = &b
	}
	if e.bounds == nil {
		return nil
	}

	var rows []RawRow
	for _, line := range groupLines(page.Words, e.layout.LineTolerance) {
		if row, ok := e.layout.rowFromLine(line, *e.bounds); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// findBoundaries locates the column headers of a page. Money in and money out
// are required, the balance column is optional.
func (l ColumnLayout) findBoundaries(words []Word) (boundaries, bool) {
	in, okIn := firstWord(words, l.MoneyIn)
	out, okOut := firstWord(words, l.MoneyOut)
	if !okIn || !okOut {
		return boundaries{}, false
	}

	b := boundaries{
		moneyIn:  in.X0 - l.HeaderBuffer,
		moneyOut: out.X0 - l.HeaderBuffer,
		balance:  math.Inf(1),
	}
	if bal, ok := firstWord(words, l.Balance); ok && bal.X0 > out.X0 {
		b.balance = bal.X0 - l.HeaderBuffer
	}
	return b, true
}

func firstWord(words []Word, tokens []string) (Word, bool) {
	for _, w := range words {
		for _, t := range tokens {
			if strings.EqualFold(w.Text, t) {
				return w, true
			}
		}
	}
	return Word{}, false
}

func (l ColumnLayout) rowFromLine(line []Word, b boundaries) (RawRow, bool) {
	if len(line) == 0 || !dayToken.MatchString(line[0].Text) {
		return RawRow{}, false
	}

	var desc, in, out []string
	for _, w := range line {
		switch {
		case w.X0 < b.moneyIn:
			desc = append(desc, w.Text)
		case w.X0 < b.moneyOut:
			in = append(in, w.Text)
		case w.X0 < b.balance:
			out = append(out, w.Text)
		}
	}

	amount := normalize.ParseAmount(strings.Join(in, ""))
	if amount.IsZero() {
		amount = normalize.ParseAmount(strings.Join(out, "")).Neg()
	}
	if amount.IsZero() {
		return RawRow{}, false
	}

	// A day number without month and year is not a transaction line.
	m := dateAndDetail.FindStringSubmatch(strings.Join(desc, " "))
	if m == nil {
		return RawRow{}, false
	}
	return RawRow{
		Date:    m[1] + "/" + monthNumber(m[2]) + "/" + m[3],
		Concept: strings.TrimSpace(m[4]),
		Amount:  amount.String(),
	}, true
}

func monthNumber(name string) string {
	r := []rune(strings.ToLower(name))
	if len(r) > 3 {
		r = r[:3]
	}
	if n, ok := spanishMonths[string(r)]; ok {
		return n
	}
	return "01"
}

// groupLines clusters words whose tops are within tolerance of the first word
// of the line, then orders each line left to right.
func groupLines(words []Word, tolerance float64) [][]Word {
	sorted := append([]Word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	var lines [][]Word
	var top float64
	for _, w := range sorted {
		if len(lines) == 0 || math.Abs(w.Top-top) > tolerance {
			lines = append(lines, nil)
			top = w.Top
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], w)
	}
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })
	}
	return lines
}
