// Package reconcile merges a freshly parsed statement into a stored ledger.
// It is pure: callers load and persist, so the CLI, the HTTP server and tests
// share the same merge rules.
package reconcile

import (
	"strings"

	"github.com/yurifrl/gastos/pkg/models"
)

// Status is the merge outcome of one incoming transaction.
type Status int

const (
	// New transactions are appended to the ledger.
	New Status = iota
	// Duplicate transactions already exist and change nothing.
	Duplicate
	// Updated transactions already exist and filled in a missing category.
	Updated
)

func (s Status) String() string {
	switch s {
	case New:
		return "new"
	case Duplicate:
		return "duplicate"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// Entry links an incoming transaction with its merge status.
type Entry struct {
	Incoming models.Transaction
	Status   Status
}

// Report is the result of a merge: the complete ledger to persist and what
// happened to every incoming transaction.
type Report struct {
	Ledger []models.Transaction
	Items  []Entry
}

func (r *Report) count(s Status) int {
	n := 0
	for _, e := range r.Items {
		if e.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) NewCount() int       { return r.count(New) }
func (r *Report) DuplicateCount() int { return r.count(Duplicate) }
func (r *Report) UpdatedCount() int   { return r.count(Updated) }

// Merge deduplicates incoming against existing by fingerprint. A known
// transaction only ever fills a blank stored category, and never with Others.
// Neither input is modified.
func Merge(existing, incoming []models.Transaction) *Report {
	ledger := models.Clone(existing)
	for i := range ledger {
		ledger[i].EnsureFingerprint()
	}

	index := make(map[string]int, len(ledger))
	for i, tx := range ledger {
		if _, ok := index[tx.Fingerprint]; !ok {
			index[tx.Fingerprint] = i
		}
	}

	report := &Report{Items: make([]Entry, 0, len(incoming))}
	var added []models.Transaction
	for _, tx := range incoming {
		tx.EnsureFingerprint()

		pos, known := index[tx.Fingerprint]
		if !known {
			added = append(added, tx)
			report.Items = append(report.Items, Entry{Incoming: tx, Status: New})
			continue
		}

		status := Duplicate
		if backfillable(tx.Category) && strings.TrimSpace(ledger[pos].Category) == "" {
			ledger[pos].Category = tx.Category
			status = Updated
		}
		report.Items = append(report.Items, Entry{Incoming: tx, Status: status})
	}

	report.Ledger = append(ledger, added...)
	models.SortLedger(report.Ledger)
	return report
}

func backfillable(category string) bool {
	c := strings.TrimSpace(category)
	return c != "" && c != models.CategoryOthers
}

// Uncategorized returns the stored transactions that match an incoming one
// and still have no category, so a user can be asked about them.
func Uncategorized(existing, incoming []models.Transaction) []models.Transaction {
	wanted := make(map[string]bool, len(incoming))
	for _, tx := range incoming {
		tx.EnsureFingerprint()
		wanted[tx.Fingerprint] = true
	}

	var out []models.Transaction
	for _, tx := range existing {
		tx.EnsureFingerprint()
		if wanted[tx.Fingerprint] && strings.TrimSpace(tx.Category) == "" {
			out = append(out, tx)
		}
	}
	return out
}
