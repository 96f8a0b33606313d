package main

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
	"github.com/yurifrl/gastos/pkg/reconcile"
)

const currency = money.EUR

var (
	newStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	duplicateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	updatedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	reviewStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

func formatAmount(d decimal.Decimal) string {
	return money.New(d.Shift(2).Round(0).IntPart(), currency).Display()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func formatLine(tx models.Transaction) string {
	date := tx.DateString()
	if date == "" {
		date = "----------"
	}
	category := tx.Category
	if category == "" {
		category = "?"
	}
	return fmt.Sprintf("%s | %-30s | %12s | %s", date, truncate(tx.Concept, 30), formatAmount(tx.Amount), category)
}

// printReport shows what a merge would do: + new, = duplicate, ~ backfilled.
func printReport(w io.Writer, report *reconcile.Report) {
	for _, item := range report.Items {
		line := formatLine(item.Incoming)
		switch item.Status {
		case reconcile.New:
			fmt.Fprintln(w, newStyle.Render("+ "+line))
		case reconcile.Updated:
			fmt.Fprintln(w, updatedStyle.Render("~ "+line))
		default:
			fmt.Fprintln(w, duplicateStyle.Render("= "+line))
		}
	}

	if report.NewCount() == 0 && report.UpdatedCount() == 0 {
		fmt.Fprintf(w, "\nPlan: all %d transaction(s) already in the ledger\n", report.DuplicateCount())
		return
	}
	fmt.Fprintf(w, "\nPlan: %d new, %d duplicate, %d updated\n", report.NewCount(), report.DuplicateCount(), report.UpdatedCount())
}

// printLedger lists transactions with a running total of what was shown.
func printLedger(w io.Writer, txs []models.Transaction, showFingerprint bool) {
	total := decimal.Zero
	for _, tx := range txs {
		line := formatLine(tx)
		if showFingerprint {
			line = tx.Fingerprint + " | " + line
		}
		if tx.NeedsReview() {
			line = reviewStyle.Render(line)
		}
		fmt.Fprintln(w, line)
		total = total.Add(tx.Amount)
	}
	fmt.Fprintf(w, "\n%d transaction(s), total %s\n", len(txs), formatAmount(total))
}
