package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/reconcile"
)

func TestFormatLine(t *testing.T) {
	tx := models.Transaction{
		Concept: "COMPRA EN UNA TIENDA CON UN NOMBRE MUY LARGO",
		Amount:  decimal.RequireFromString("-1234.5"),
	}
	line := formatLine(tx)
	if !strings.HasPrefix(line, "---------- | ") {
		t.Errorf("undated line = %q", line)
	}
	if !strings.Contains(line, "234") || !strings.Contains(line, "50") || !strings.Contains(line, "€") {
		t.Errorf("amount not formatted: %q", line)
	}
	if !strings.HasSuffix(line, "| ?") {
		t.Errorf("missing category marker: %q", line)
	}
	if strings.Contains(line, "MUY LARGO") {
		t.Errorf("concept not truncated: %q", line)
	}
}

func TestPrintReport(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	existing := []models.Transaction{{Concept: "MERCADONA", Amount: decimal.NewFromInt(-42), Date: day}}
	incoming := []models.Transaction{
		{Concept: "MERCADONA", Amount: decimal.NewFromInt(-42), Date: day, Category: "Groceries"},
		{Concept: "NETFLIX", Amount: decimal.NewFromInt(-13), Date: day},
	}

	var buf bytes.Buffer
	printReport(&buf, reconcile.Merge(existing, incoming))
	if !strings.Contains(buf.String(), "Plan: 1 new, 0 duplicate, 1 updated") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}
}

func TestFiltersFlags(t *testing.T) {
	f := filters{minAmount: "-50", maxAmount: "0", concept: "merca"}
	fn, err := f.toFilterFunc()
	if err != nil {
		t.Fatal(err)
	}
	if !fn(models.Transaction{Concept: "MERCADONA", Amount: decimal.NewFromInt(-42)}) {
		t.Error("expected MERCADONA to pass")
	}
	if fn(models.Transaction{Concept: "MERCADONA", Amount: decimal.NewFromInt(-60)}) {
		t.Error("expected amount below min to be filtered")
	}

	bad := filters{startDate: "2024/01/01"}
	if _, err := bad.toFilterFunc(); err == nil {
		t.Error("expected error for slash date")
	}
}
