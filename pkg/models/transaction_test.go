package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFingerprint(t *testing.T) {
	base := Transaction{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.10"), Date: date(2024, 1, 15)}

	tests := []struct {
		name  string
		other Transaction
		same  bool
	}{
		{"case and spaces", Transaction{Concept: "  MERCADONA ", Amount: decimal.RequireFromString("-42.1"), Date: date(2024, 1, 15)}, true},
		{"category ignored", Transaction{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.10"), Date: date(2024, 1, 15), Category: "Groceries"}, true},
		{"different amount", Transaction{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.11"), Date: date(2024, 1, 15)}, false},
		{"different date", Transaction{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.10"), Date: date(2024, 1, 16)}, false},
		{"missing date", Transaction{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.10")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.ComputeFingerprint() == tt.other.ComputeFingerprint()
			if got != tt.same {
				t.Errorf("fingerprints equal = %v, want %v", got, tt.same)
			}
		})
	}

	if len(base.ComputeFingerprint()) != 32 {
		t.Errorf("expected 32 hex chars, got %q", base.ComputeFingerprint())
	}
}

func TestNeedsReview(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"uncategorized outflow", Transaction{Amount: decimal.NewFromInt(-5)}, true},
		{"blank category outflow", Transaction{Amount: decimal.NewFromInt(-5), Category: "  "}, true},
		{"categorized outflow", Transaction{Amount: decimal.NewFromInt(-5), Category: "Groceries"}, false},
		{"inflow", Transaction{Amount: decimal.NewFromInt(5)}, false},
		{"zero", Transaction{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.NeedsReview(); got != tt.want {
				t.Errorf("NeedsReview() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortLedger(t *testing.T) {
	txs := []Transaction{
		{Concept: "undated-a"},
		{Concept: "old", Date: date(2024, 1, 1)},
		{Concept: "undated-b"},
		{Concept: "new", Date: date(2024, 3, 1)},
		{Concept: "mid", Date: date(2024, 2, 1)},
	}
	SortLedger(txs)

	want := []string{"new", "mid", "old", "undated-a", "undated-b"}
	for i, w := range want {
		if txs[i].Concept != w {
			t.Fatalf("position %d: got %s, want %s", i, txs[i].Concept, w)
		}
	}
}

func TestTransactionJSON(t *testing.T) {
	tx := Transaction{Concept: "Netflix", Amount: decimal.RequireFromString("-12.99")}
	tx.EnsureFingerprint()

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["date"] != nil {
		t.Errorf("expected null date, got %v", raw["date"])
	}
	if raw["needs_review"] != true {
		t.Errorf("expected needs_review true, got %v", raw["needs_review"])
	}

	var back Transaction
	if err := json.Unmarshal([]byte(`{"concept":"Bar","amount":"-3.5","date":"2024-02-10","category":"Food & Dining"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Date.Equal(date(2024, 2, 10)) || back.Category != "Food & Dining" || !back.Amount.Equal(decimal.RequireFromString("-3.5")) {
		t.Errorf("unexpected transaction %+v", back)
	}
}
