package parser

import (
	"os"
	"testing"

	"rsc.io/pdf"

	"github.com/yurifrl/gastos/pkg/models"
)

func glyph(s string, x, y float64) pdf.Text {
	return pdf.Text{Font: "F1", FontSize: 10, X: x, Y: y, W: 5, S: s}
}

func TestGroupWords(t *testing.T) {
	glyphs := []pdf.Text{
		// Out of order on purpose, groupWords sorts top to bottom then left to right.
		glyph("Z", 50, 680),
		glyph("F", 50, 700), glyph("O", 55, 700), glyph("O", 60, 700),
		glyph(" ", 65, 700),
		glyph("B", 70, 700), glyph("A", 75, 700),
		glyph("1", 200, 700), glyph("2", 205, 700),
		glyph("3", 220, 700),
	}

	words := groupWords(glyphs, 800)

	expected := []Word{
		{Text: "FOO", X0: 50, X1: 65, Top: 100},
		{Text: "BA", X0: 70, X1: 80, Top: 100},
		{Text: "12", X0: 200, X1: 210, Top: 100},
		{Text: "3", X0: 220, X1: 225, Top: 100},
		{Text: "Z", X0: 50, X1: 55, Top: 120},
	}
	if len(words) != len(expected) {
		t.Fatalf("expected %d words, got %d: %+v", len(expected), len(words), words)
	}
	for i, exp := range expected {
		if words[i] != exp {
			t.Errorf("word %d mismatch:\nExpected: %+v\nGot: %+v", i, exp, words[i])
		}
	}
}

func TestGroupWordsBaselineChange(t *testing.T) {
	// Adjacent glyphs on different baselines never join, even with no gap.
	glyphs := []pdf.Text{glyph("A", 50, 700), glyph("B", 55, 697)}

	words := groupWords(glyphs, 800)
	if len(words) != 2 || words[0].Text != "A" || words[1].Text != "B" {
		t.Fatalf("expected words A and B, got %+v", words)
	}
	if words[1].Top != 103 {
		t.Errorf("expected top 103 for B, got %v", words[1].Top)
	}
}

func TestGroupWordsOnlySpaces(t *testing.T) {
	if words := groupWords([]pdf.Text{glyph(" ", 50, 700), glyph("\t", 55, 700)}, 800); len(words) != 0 {
		t.Fatalf("expected no words, got %+v", words)
	}
}

func TestReadPagesMalformed(t *testing.T) {
	if _, err := readPages([]byte("%PDF-1.4\nnot really a pdf")); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestProcessBytesPDF(t *testing.T) {
	data, err := os.ReadFile("testdata/statement.pdf")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	pages, err := readPages(data)
	if err != nil {
		t.Fatalf("readPages failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if w := pages[0].Words[0]; w.Text != "FECHA" || w.Top != 100 {
		t.Errorf("expected first word FECHA at top 100, got %+v", w)
	}

	table, err := newTestParser().ProcessBytes(data, "statement.pdf")
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}

	expected := []struct {
		date, concept, amount string
	}{
		{"01/12/2025", "Mercadona", "-12.5"},
		{"02/01/2026", "Nomina", "1500"},
	}
	if len(table.Rows) != len(expected) {
		t.Fatalf("expected %d rows, got %d: %v", len(expected), len(table.Rows), table.Rows)
	}
	for i, exp := range expected {
		row := table.Rows[i]
		if table.Value(row, models.ColumnDate) != exp.date ||
			table.Value(row, models.ColumnConcept) != exp.concept ||
			table.Value(row, models.ColumnAmount) != exp.amount {
			t.Errorf("row %d mismatch:\nExpected: %+v\nGot: %v", i, exp, row)
		}
	}
}
