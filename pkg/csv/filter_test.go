package csv

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

func TestFilter(t *testing.T) {
	txs := []models.Transaction{
		{Concept: "MERCADONA", Amount: decimal.NewFromInt(-40), Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Category: "Groceries"},
		{Concept: "Netflix", Amount: decimal.NewFromInt(-13), Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Category: "Subscriptions"},
		{Concept: "Nomina", Amount: decimal.NewFromInt(1500), Date: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), Category: "Income"},
		{Concept: "Ajuste", Amount: decimal.NewFromInt(-1)},
	}

	tests := []struct {
		name                                    string
		start, end, min, max, concept, category string
		want                                    []string
	}{
		{name: "no filter", want: []string{"MERCADONA", "Netflix", "Nomina", "Ajuste"}},
		{name: "date range", start: "2024-02-01", end: "2024-02-15", want: []string{"Netflix"}},
		{name: "outflows", max: "0", want: []string{"MERCADONA", "Netflix", "Ajuste"}},
		{name: "amount band", min: "-20", max: "-5", want: []string{"Netflix"}},
		{name: "concept", concept: "merca", want: []string{"MERCADONA"}},
		{name: "category", category: "income", want: []string{"Nomina"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.start, tt.end, tt.min, tt.max, tt.concept, tt.category)
			if err != nil {
				t.Fatalf("ParseFilter failed: %v", err)
			}
			got := Apply(txs, f.Func())
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %v", len(got), tt.want)
			}
			for i, c := range tt.want {
				if got[i].Concept != c {
					t.Errorf("row %d = %s, want %s", i, got[i].Concept, c)
				}
			}
		})
	}
}

func TestParseFilterErrors(t *testing.T) {
	if _, err := ParseFilter("01/02/2024", "", "", "", "", ""); err == nil {
		t.Error("expected error for bad start date")
	}
	if _, err := ParseFilter("", "", "abc", "", "", ""); err == nil {
		t.Error("expected error for bad amount")
	}
}
