package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CategoryIncome is assigned to every inflow, regardless of rules.
	CategoryIncome = "Income"
	// CategoryOthers is only ever set by a user.
	CategoryOthers = "Others"

	DateLayout = "2006-01-02"
)

// Transaction is a single normalized movement of a bank statement.
type Transaction struct {
	Concept       string
	CardReference string
	Amount        decimal.Decimal
	// Date is the zero time when the statement row had no usable date.
	Date        time.Time
	Category    string
	Fingerprint string
}

func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// NeedsReview reports whether an outflow is still waiting for a category.
func (t Transaction) NeedsReview() bool {
	return t.Amount.IsNegative() && strings.TrimSpace(t.Category) == ""
}

// DateString returns the date as YYYY-MM-DD, or "" when absent.
func (t Transaction) DateString() string {
	if !t.HasDate() {
		return ""
	}
	return t.Date.Format(DateLayout)
}

// ComputeFingerprint derives the content identity used for deduplication:
// md5(lower(trim(concept)) | YYYY-MM-DD | amount with two decimals).
func (t Transaction) ComputeFingerprint() string {
	key := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(t.Concept)),
		t.DateString(),
		t.Amount.StringFixed(2))
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// EnsureFingerprint fills Fingerprint when it is empty.
func (t *Transaction) EnsureFingerprint() {
	if t.Fingerprint == "" {
		t.Fingerprint = t.ComputeFingerprint()
	}
}

type transactionJSON struct {
	Fingerprint   string          `json:"fingerprint"`
	Date          *string         `json:"date"`
	Concept       string          `json:"concept"`
	CardReference string          `json:"card,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	NeedsReview   bool            `json:"needs_review"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		Fingerprint:   t.Fingerprint,
		Concept:       t.Concept,
		CardReference: t.CardReference,
		Amount:        t.Amount,
		Category:      t.Category,
		NeedsReview:   t.NeedsReview(),
	}
	if t.HasDate() {
		d := t.DateString()
		out.Date = &d
	}
	return json.Marshal(out)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var in transactionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = Transaction{
		Fingerprint:   in.Fingerprint,
		Concept:       in.Concept,
		CardReference: in.CardReference,
		Amount:        in.Amount,
		Category:      in.Category,
	}
	if in.Date != nil && *in.Date != "" {
		d, err := time.Parse(DateLayout, *in.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", *in.Date, err)
		}
		t.Date = d
	}
	return nil
}

// SortLedger orders by date descending with undated rows last. The sort is
// stable so rows sharing a date keep their relative order.
func SortLedger(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.HasDate() {
			return false
		}
		if !b.HasDate() {
			return true
		}
		return a.Date.After(b.Date)
	})
}

// Clone returns a copy of the slice that can be modified freely.
func Clone(txs []Transaction) []Transaction {
	if txs == nil {
		return nil
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}
