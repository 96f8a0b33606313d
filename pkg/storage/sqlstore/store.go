// Package sqlstore keeps ledgers and learned mappings in SQLite or Postgres.
// A ledger save deletes and reinserts the profile rows inside one
// transaction, which gives the whole-ledger atomic replace of the contract.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

//go:embed schema.sql
var schema string

const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to driver (SQLite or Postgres) and creates the schema. For
// SQLite, dsn is a file path whose directory is created when missing.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case SQLite:
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	case Postgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) Load(ctx context.Context, profile string) ([]models.Transaction, error) {
	const query = `SELECT fingerprint, concept, card, amount, category, date
	FROM ledger_transactions WHERE profile = ? ORDER BY position`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), profile)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount, date string
		if err := rows.Scan(&tx.Fingerprint, &tx.Concept, &tx.CardReference, &amount, &tx.Category, &date); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ledger row %s: invalid amount: %w", tx.Fingerprint, err)
		}
		if date != "" {
			if tx.Date, err = time.Parse(models.DateLayout, date); err != nil {
				return nil, fmt.Errorf("ledger row %s: invalid date: %w", tx.Fingerprint, err)
			}
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) Save(ctx context.Context, profile string, ledger []models.Transaction) (err error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if _, err = dbTx.ExecContext(ctx, s.rebind(`DELETE FROM ledger_transactions WHERE profile = ?`), profile); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}

	const insert = `INSERT INTO ledger_transactions
	(profile, position, fingerprint, concept, card, amount, category, date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := dbTx.PrepareContext(ctx, s.rebind(insert))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, tx := range ledger {
		tx.EnsureFingerprint()
		if _, err = stmt.ExecContext(ctx, profile, i, tx.Fingerprint, tx.Concept, tx.CardReference,
			tx.Amount.StringFixed(2), tx.Category, tx.DateString()); err != nil {
			return fmt.Errorf("insert ledger row %d: %w", i, err)
		}
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) LoadMappings(ctx context.Context) (*models.Mappings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT concept, category FROM learned_mappings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	m := models.NewMappings()
	for rows.Next() {
		var concept, category string
		if err := rows.Scan(&concept, &category); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		m.Set(concept, category)
	}
	return m, rows.Err()
}

func (s *Store) SaveMappings(ctx context.Context, mappings *models.Mappings) (err error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if _, err = dbTx.ExecContext(ctx, `DELETE FROM learned_mappings`); err != nil {
		return fmt.Errorf("clear mappings: %w", err)
	}
	for i, concept := range mappings.Keys() {
		category, _ := mappings.Get(concept)
		if _, err = dbTx.ExecContext(ctx, s.rebind(`INSERT INTO learned_mappings (position, concept, category) VALUES (?, ?, ?)`),
			i, concept, category); err != nil {
			return fmt.Errorf("insert mapping %q: %w", concept, err)
		}
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
