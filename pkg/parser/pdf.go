package parser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"rsc.io/pdf"

	"github.com/yurifrl/gastos/pkg/models"
)

// Word is a run of glyphs sharing a baseline. Top grows downward from the top
// edge of the page.
type Word struct {
	Text string
	X0   float64
	X1   float64
	Top  float64
}

// Page holds the words of one PDF page in reading order.
type Page struct {
	Number int
	Words  []Word
}

// parsePDF extracts statement rows with the first layout that yields any.
func (p *Parser) parsePDF(data []byte) (*models.RawTable, error) {
	pages, err := readPages(data)
	if err != nil {
		return nil, err
	}

	for _, layout := range p.layouts {
		extractor := layout.NewExtractor()
		var rows []RawRow
		for _, page := range pages {
			rows = append(rows, extractor.ExtractRows(page)...)
		}
		if len(rows) == 0 {
			p.logger.Debug("layout produced no rows", "layout", layout.Name(), "pages", len(pages))
			continue
		}

		p.logger.Debug("pdf rows extracted", "layout", layout.Name(), "rows", len(rows))
		header := []string{"Fecha", "Concepto", "Importe"}
		body := make([][]string, len(rows))
		for i, r := range rows {
			body[i] = []string{r.Date, r.Concept, r.Amount}
		}
		return normalizeTable(header, body)
	}
	return nil, fmt.Errorf("no transactions found in pdf")
}

// readPages loads every page of the document. The pdf package panics on some
// malformed input, which is reported as an error instead.
func readPages(data []byte) (pages []Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening pdf: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		pg := r.Page(i)
		if pg.V.IsNull() {
			continue
		}
		height := pg.V.Key("MediaBox").Index(3).Float64()
		pages = append(pages, Page{Number: i, Words: groupWords(pg.Content().Text, height)})
	}
	return pages, nil
}

// groupWords joins glyphs into words. A word ends on whitespace, on a change
// of baseline or on a horizontal gap wider than a fraction of the font size.
func groupWords(glyphs []pdf.Text, height float64) []Word {
	sorted := append([]pdf.Text(nil), glyphs...)
	sort.Sort(pdf.TextVertical(sorted))

	var words []Word
	var cur *Word
	var curY float64

	flush := func() {
		if cur != nil && cur.Text != "" {
			words = append(words, *cur)
		}
		cur = nil
	}

	for _, g := range sorted {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		gap := math.Max(g.FontSize*0.2, 0.5)
		if cur != nil && (math.Abs(g.Y-curY) > 1 || g.X > cur.X1+gap || g.X < cur.X0) {
			flush()
		}
		if cur == nil {
			cur = &Word{X0: g.X, X1: g.X, Top: height - g.Y}
			curY = g.Y
		}
		cur.Text += g.S
		cur.X1 = math.Max(cur.X1, g.X+g.W)
	}
	flush()
	return words
}
