// Package csv writes transactions as CSV, both the canonical export
// (Date,Concept,Amount,Category) and the stored ledger format.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

type FilterFunc func(models.Transaction) bool

var exportHeader = []string{"Date", "Concept", "Amount", "Category"}

// LedgerHeader is the column order of a stored ledger file.
var LedgerHeader = []string{"TransactionID", "Concepto", "Amount", "Category", "Date", "Tarjeta"}

// Create renders the canonical export of the records accepted by filter.
func Create(records []models.Transaction, filter FilterFunc) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(exportHeader)
	for _, r := range records {
		if filter == nil || filter(r) {
			_ = w.Write([]string{r.DateString(), r.Concept, r.Amount.StringFixed(2), r.Category})
		}
	}
	w.Flush()
	return buf.Bytes()
}

// WriteLedger writes the stored ledger format.
func WriteLedger(out io.Writer, txs []models.Transaction) error {
	w := csv.NewWriter(out)
	if err := w.Write(LedgerHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		tx.EnsureFingerprint()
		record := []string{tx.Fingerprint, tx.Concept, tx.Amount.StringFixed(2), tx.Category, tx.DateString(), tx.CardReference}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadLedger reads a stored ledger. Columns are located by name so files with
// extra or reordered columns still load; a missing TransactionID is
// recomputed.
func ReadLedger(in io.Reader) ([]models.Transaction, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"Concepto", "Amount"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("ledger is missing column %s", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var txs []models.Transaction
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger line %d: %w", line, err)
		}

		amount, err := decimal.NewFromString(get(rec, "Amount"))
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: invalid amount: %w", line, err)
		}
		tx := models.Transaction{
			Fingerprint: get(rec, "TransactionID"),
			Concept:     get(rec, "Concepto"),
			Amount:      amount,
			Category:    get(rec, "Category"),
			// Ledgers written before the card column load with no card.
			CardReference: get(rec, "Tarjeta"),
		}
		if d := get(rec, "Date"); d != "" {
			// Older files stored full timestamps.
			if len(d) > len(models.DateLayout) {
				d = d[:len(models.DateLayout)]
			}
			parsed, err := time.Parse(models.DateLayout, d)
			if err != nil {
				return nil, fmt.Errorf("ledger line %d: invalid date: %w", line, err)
			}
			tx.Date = parsed
		}
		tx.EnsureFingerprint()
		txs = append(txs, tx)
	}
	return txs, nil
}
