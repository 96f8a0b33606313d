// Package csvfile stores each profile ledger as a CSV file and the learned
// mappings as JSON under a root directory:
//
//	<root>/data/<profile>/transactions.csv
//	<root>/config/category_mapping.json
package csvfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yurifrl/gastos/pkg/csv"
	"github.com/yurifrl/gastos/pkg/models"
)

const (
	ledgerFile   = "transactions.csv"
	mappingsFile = "category_mapping.json"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) LedgerPath(profile string) string {
	return filepath.Join(s.root, "data", profile, ledgerFile)
}

func (s *Store) MappingsPath() string {
	return filepath.Join(s.root, "config", mappingsFile)
}

func (s *Store) Load(_ context.Context, profile string) ([]models.Transaction, error) {
	f, err := os.Open(s.LedgerPath(profile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	txs, err := csv.ReadLedger(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", f.Name(), err)
	}
	return txs, nil
}

func (s *Store) Save(_ context.Context, profile string, ledger []models.Transaction) error {
	var buf bytes.Buffer
	if err := csv.WriteLedger(&buf, ledger); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return writeAtomic(s.LedgerPath(profile), buf.Bytes())
}

type mappingsDocument struct {
	LearnedMappings *models.Mappings `json:"learned_mappings"`
}

func (s *Store) LoadMappings(context.Context) (*models.Mappings, error) {
	data, err := os.ReadFile(s.MappingsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewMappings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}

	doc := mappingsDocument{LearnedMappings: models.NewMappings()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}
	if doc.LearnedMappings == nil {
		return models.NewMappings(), nil
	}
	return doc.LearnedMappings, nil
}

func (s *Store) SaveMappings(_ context.Context, mappings *models.Mappings) error {
	data, err := json.MarshalIndent(mappingsDocument{LearnedMappings: mappings}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}
	return writeAtomic(s.MappingsPath(), data)
}

// writeAtomic replaces path with data through a temporary file in the same
// directory, so readers see either the old or the new content.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
