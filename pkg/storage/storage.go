// Package storage defines where ledgers and learned mappings live. The
// reconciliation core only depends on these two contracts.
package storage

import (
	"context"

	"github.com/yurifrl/gastos/pkg/models"
)

// LedgerStore holds one ledger per profile. Load returns an empty ledger when
// nothing was stored yet; Save replaces the whole ledger atomically.
type LedgerStore interface {
	Load(ctx context.Context, profile string) ([]models.Transaction, error)
	Save(ctx context.Context, profile string, ledger []models.Transaction) error
}

// MappingStore holds the learned concept -> category table.
type MappingStore interface {
	LoadMappings(ctx context.Context) (*models.Mappings, error)
	SaveMappings(ctx context.Context, mappings *models.Mappings) error
}

// Store is a backend serving both contracts.
type Store interface {
	LedgerStore
	MappingStore
}
