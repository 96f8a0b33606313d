package parser

import "testing"

// line lays out words left to right at the given x positions.
func line(top float64, texts []string, xs []float64) []Word {
	words := make([]Word, len(texts))
	for i := range texts {
		words[i] = Word{Text: texts[i], X0: xs[i], X1: xs[i] + 20, Top: top}
	}
	return words
}

func headerLine(top float64) []Word {
	return line(top,
		[]string{"FECHA", "TIPO", "DESCRIPCIÓN", "ENTRADA", "DE", "DINERO", "SALIDA", "DE", "DINERO", "SALDO"},
		[]float64{50, 90, 140, 300, 335, 350, 380, 410, 425, 470})
}

func TestColumnLayoutExtractRows(t *testing.T) {
	var words []Word
	words = append(words, line(40, []string{"RESUMEN", "DE", "LA", "CUENTA"}, []float64{50, 110, 140, 160})...)
	words = append(words, headerLine(100)...)
	words = append(words, line(120.5, []string{"01", "dic", "2025", "Transacción", "Mercadona", "12,50", "€", "1.000,00", "€"}, []float64{50, 65, 85, 140, 200, 385, 405, 470, 510})...)
	// Slightly lower baseline for the day token must still join the line.
	words = append(words, line(140, []string{"Pago", "Ingreso", "Nomina", "1.500,00", "€", "2.500,00", "€"}, []float64{90, 140, 190, 300, 330, 470, 510})...)
	words = append(words, line(142, []string{"02"}, []float64{50})...)
	words = append(words, line(141, []string{"dic", "2025"}, []float64{65, 85})...)
	words = append(words, line(160, []string{"03", "xyz", "2025", "Sin", "importe"}, []float64{50, 65, 85, 140, 180})...)
	words = append(words, line(180, []string{"05", "Transferencia", "recibida", "12,00"}, []float64{50, 90, 160, 305})...)

	extractor := DefaultColumnLayout().NewExtractor()
	rows := extractor.ExtractRows(Page{Number: 1, Words: words})

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].Date != "01/12/2025" || rows[0].Concept != "Transacción Mercadona" || rows[0].Amount != "-12.5" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Date != "02/12/2025" || rows[1].Concept != "Pago Ingreso Nomina" || rows[1].Amount != "1500" {
		t.Errorf("unexpected second row %+v", rows[1])
	}
}

func TestColumnLayoutCarriesBoundariesAcrossPages(t *testing.T) {
	extractor := DefaultColumnLayout().NewExtractor()

	orphan := Page{Number: 1, Words: line(120, []string{"05", "ene", "2025", "Antes", "9,99"}, []float64{50, 65, 85, 140, 385})}
	if rows := extractor.ExtractRows(orphan); len(rows) != 0 {
		t.Fatalf("page without any header must be skipped, got %+v", rows)
	}

	first := append(headerLine(100), line(120, []string{"06", "ene", "2025", "Bar", "3,00"}, []float64{50, 65, 85, 140, 385})...)
	if rows := extractor.ExtractRows(Page{Number: 2, Words: first}); len(rows) != 1 {
		t.Fatalf("expected 1 row on header page, got %+v", rows)
	}

	next := Page{Number: 3, Words: line(80, []string{"07", "feb", "2025", "Cine", "8,00", "€"}, []float64{50, 65, 85, 140, 385, 405})}
	rows := extractor.ExtractRows(next)
	if len(rows) != 1 {
		t.Fatalf("expected continuation page to reuse boundaries, got %+v", rows)
	}
	if rows[0].Date != "07/02/2025" || rows[0].Amount != "-8" {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

func TestMonthNumber(t *testing.T) {
	tests := map[string]string{
		"ene":  "01",
		"Sept": "09",
		"DIC":  "12",
		"abr.": "04",
		"foo":  "01",
	}
	for in, want := range tests {
		if got := monthNumber(in); got != want {
			t.Errorf("monthNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupLines(t *testing.T) {
	words := []Word{
		{Text: "b", X0: 30, Top: 10},
		{Text: "c", X0: 5, Top: 30},
		{Text: "a", X0: 10, Top: 12},
	}
	lines := groupLines(words, 3)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][0].Text != "a" || lines[0][1].Text != "b" || lines[1][0].Text != "c" {
		t.Errorf("unexpected grouping %+v", lines)
	}
}
