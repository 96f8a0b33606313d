package memory

import (
	"context"
	"sync"

	"github.com/yurifrl/gastos/pkg/models"
)

// Store keeps ledgers and mappings in memory. Every read and write copies, so
// callers never share slices with the store.
type Store struct {
	mu       sync.Mutex
	ledgers  map[string][]models.Transaction
	mappings *models.Mappings
}

func New() *Store {
	return &Store{
		ledgers:  make(map[string][]models.Transaction),
		mappings: models.NewMappings(),
	}
}

func (s *Store) Load(_ context.Context, profile string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Clone(s.ledgers[profile]), nil
}

func (s *Store) Save(_ context.Context, profile string, ledger []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[profile] = models.Clone(ledger)
	return nil
}

func (s *Store) LoadMappings(context.Context) (*models.Mappings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mappings.Clone(), nil
}

func (s *Store) SaveMappings(_ context.Context, mappings *models.Mappings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = mappings.Clone()
	return nil
}
