// Package gcs keeps ledgers and mappings as objects in a Google Cloud Storage
// bucket. Object writes are finalized on Close, so a failed upload never
// replaces the previous ledger.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yurifrl/gastos/pkg/csv"
	"github.com/yurifrl/gastos/pkg/models"
)

const uploadTimeout = 2 * time.Minute

type Store struct {
	bucket *storage.BucketHandle
	prefix string
}

// New uses an existing client; the caller owns and closes it.
func New(client *storage.Client, bucket, prefix string) *Store {
	return &Store{bucket: client.Bucket(bucket), prefix: prefix}
}

func LedgerObject(prefix, profile string) string {
	return path.Join(prefix, "data", profile, "transactions.csv")
}

func MappingsObject(prefix string) string {
	return path.Join(prefix, "config", "category_mapping.json")
}

func (s *Store) Load(ctx context.Context, profile string) ([]models.Transaction, error) {
	data, err := s.read(ctx, LedgerObject(s.prefix, profile))
	if err != nil || data == nil {
		return nil, err
	}
	txs, err := csv.ReadLedger(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read ledger of %s: %w", profile, err)
	}
	return txs, nil
}

func (s *Store) Save(ctx context.Context, profile string, ledger []models.Transaction) error {
	var buf bytes.Buffer
	if err := csv.WriteLedger(&buf, ledger); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return s.write(ctx, LedgerObject(s.prefix, profile), "text/csv", buf.Bytes())
}

type mappingsDocument struct {
	LearnedMappings *models.Mappings `json:"learned_mappings"`
}

func (s *Store) LoadMappings(ctx context.Context) (*models.Mappings, error) {
	data, err := s.read(ctx, MappingsObject(s.prefix))
	if err != nil {
		return nil, err
	}
	doc := mappingsDocument{LearnedMappings: models.NewMappings()}
	if data != nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse mappings: %w", err)
		}
	}
	if doc.LearnedMappings == nil {
		return models.NewMappings(), nil
	}
	return doc.LearnedMappings, nil
}

func (s *Store) SaveMappings(ctx context.Context, mappings *models.Mappings) error {
	data, err := json.Marshal(mappingsDocument{LearnedMappings: mappings})
	if err != nil {
		return fmt.Errorf("encode mappings: %w", err)
	}
	return s.write(ctx, MappingsObject(s.prefix), "application/json", data)
}

// read returns nil data when the object does not exist.
func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, name, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		// Cancelling the context before Close aborts the upload.
		cancel()
		_ = w.Close()
		return fmt.Errorf("write GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", name, err)
	}
	return nil
}
