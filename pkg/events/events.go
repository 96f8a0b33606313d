// Package events announces completed ledger merges to other systems.
package events

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const LedgerMergedTopic = "ledger_merged"

// LedgerMerged is emitted after a merged ledger was saved.
type LedgerMerged struct {
	ImportID   string    `json:"import_id"`
	Profile    string    `json:"profile"`
	Source     string    `json:"source,omitempty"`
	New        int       `json:"new"`
	Duplicates int       `json:"duplicates"`
	Updated    int       `json:"updated"`
	Learned    int       `json:"learned"`
	LedgerSize int       `json:"ledger_size"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event LedgerMerged) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, LedgerMerged) error { return nil }

// LogPublisher writes events to a logger, for local runs without a broker.
type LogPublisher struct {
	Logger *log.Logger
}

func (p LogPublisher) Publish(_ context.Context, e LedgerMerged) error {
	p.Logger.Info("ledger merged",
		"import_id", e.ImportID,
		"profile", e.Profile,
		"source", e.Source,
		"new", e.New,
		"duplicates", e.Duplicates,
		"updated", e.Updated,
		"learned", e.Learned,
		"ledger_size", e.LedgerSize)
	return nil
}
