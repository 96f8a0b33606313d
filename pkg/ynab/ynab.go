package ynab

import (
	"strings"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/budget"
	"github.com/brunomvsouza/ynab.go/api/transaction"
)

// YNABClient wraps the YNAB client so remote transactions carry the ledger
// fingerprint stored in their memo.
type YNABClient struct {
	client ynab.ClientServicer
}

type TransactionService struct {
	original *transaction.Service
}

// Transaction is a remote YNAB transaction plus the fingerprint found in the
// first comma separated field of its memo.
type Transaction struct {
	*transaction.Transaction
	fingerprint string
}

func fingerprintFromMemo(memo *string) string {
	if memo == nil {
		return ""
	}
	m := strings.Trim(*memo, "\"")
	if idx := strings.Index(m, ","); idx > 0 {
		return m[:idx]
	}
	return ""
}

func New(token string) *YNABClient {
	return &YNABClient{
		client: ynab.NewClient(token),
	}
}

func (c *YNABClient) Transaction() *TransactionService {
	return &TransactionService{original: c.client.Transaction()}
}

func (c *YNABClient) Budget() *budget.Service {
	return c.client.Budget()
}

func (c *YNABClient) Account() *account.Service {
	return c.client.Account()
}

func (ts *TransactionService) GetTransactionsByAccount(budgetID, accountID string) ([]*Transaction, error) {
	remote, err := ts.original.GetTransactionsByAccount(budgetID, accountID, nil)
	if err != nil {
		return nil, err
	}

	out := make([]*Transaction, 0, len(remote))
	for _, tx := range remote {
		out = append(out, &Transaction{Transaction: tx, fingerprint: fingerprintFromMemo(tx.Memo)})
	}
	return out, nil
}

// CreateTransactions creates multiple transactions in one API call
func (ts *TransactionService) CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error {
	if len(payloads) == 0 {
		return nil
	}
	_, err := ts.original.CreateTransactions(budgetID, payloads)
	return err
}

func (t *Transaction) Fingerprint() string {
	return t.fingerprint
}
