package ynab

import (
	"fmt"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

// TransactionAPI is the part of the YNAB API the exporter needs.
type TransactionAPI interface {
	GetTransactionsByAccount(budgetID, accountID string) ([]*Transaction, error)
	CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error
}

// Exporter pushes ledger rows to a YNAB account, skipping rows already there.
type Exporter struct {
	api    TransactionAPI
	logger *log.Logger
}

func NewExporter(client TransactionAPI, logger *log.Logger) *Exporter {
	return &Exporter{api: client, logger: logger}
}

// Plan returns the payloads that Export would create.
func (e *Exporter) Plan(budgetID, accountID string, ledger []models.Transaction) ([]transaction.PayloadTransaction, error) {
	remote, err := e.api.GetTransactionsByAccount(budgetID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote transactions: %w", err)
	}
	payloads, err := Payloads(accountID, ledger, remote)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("export planned", "account_id", accountID, "ledger", len(ledger), "remote", len(remote), "to_create", len(payloads))
	return payloads, nil
}

// Export creates the missing transactions and returns how many were sent.
func (e *Exporter) Export(budgetID, accountID string, ledger []models.Transaction) (int, error) {
	payloads, err := e.Plan(budgetID, accountID, ledger)
	if err != nil {
		return 0, err
	}
	if err := e.api.CreateTransactions(budgetID, payloads); err != nil {
		return 0, fmt.Errorf("failed to create transactions: %w", err)
	}
	e.logger.Info("created transactions", "count", len(payloads), "account_id", accountID)
	return len(payloads), nil
}

// Payloads converts the ledger rows missing from remote into YNAB payloads.
// Undated rows cannot be exported and are skipped.
func Payloads(accountID string, ledger []models.Transaction, remote []*Transaction) ([]transaction.PayloadTransaction, error) {
	present := make(map[string]bool, len(remote))
	for _, rt := range remote {
		if fp := rt.Fingerprint(); fp != "" {
			present[fp] = true
		}
	}

	out := make([]transaction.PayloadTransaction, 0, len(ledger))
	for _, tx := range ledger {
		tx.EnsureFingerprint()
		if !tx.HasDate() || present[tx.Fingerprint] {
			continue
		}
		date, err := api.DateFromString(tx.DateString())
		if err != nil {
			return nil, fmt.Errorf("invalid date for %s: %w", tx.Fingerprint, err)
		}
		payee := tx.Concept
		memo := Memo(tx)
		out = append(out, transaction.PayloadTransaction{
			AccountID: accountID,
			Date:      date,
			Amount:    Milliunits(tx.Amount),
			Cleared:   transaction.ClearingStatusCleared,
			Approved:  true,
			PayeeName: &payee,
			Memo:      &memo,
		})
		present[tx.Fingerprint] = true
	}
	return out, nil
}

// Memo stores the fingerprint first so it can be read back from YNAB.
func Memo(tx models.Transaction) string {
	if tx.Category == "" {
		return tx.Fingerprint + ","
	}
	return tx.Fingerprint + "," + tx.Category
}

// Milliunits converts an amount to the YNAB integer representation.
func Milliunits(amount decimal.Decimal) int64 {
	return amount.Shift(3).Round(0).IntPart()
}
