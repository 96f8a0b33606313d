package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/gastos/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(SQLite, filepath.Join(t.TempDir(), "db", "gastos.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLedgerReplace(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := []models.Transaction{
		{Concept: "Mercadona", Amount: decimal.RequireFromString("-42.10"), Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{Concept: "Undated", Amount: decimal.RequireFromString("-1"), CardReference: "****1"},
	}
	if err := s.Save(ctx, "ana", first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "bob", first[:1]); err != nil {
		t.Fatalf("Save bob: %v", err)
	}

	got, err := s.Load(ctx, "ana")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[1].CardReference != "****1" || got[1].HasDate() {
		t.Fatalf("unexpected ledger %+v", got)
	}
	if got[0].Fingerprint != first[0].ComputeFingerprint() {
		t.Error("fingerprint not stored")
	}

	first[0].Category = "Groceries"
	if err := s.Save(ctx, "ana", first[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = s.Load(ctx, "ana")
	if len(got) != 1 || got[0].Category != "Groceries" {
		t.Errorf("save must replace the ledger, got %+v", got)
	}

	other, _ := s.Load(ctx, "bob")
	if len(other) != 1 {
		t.Errorf("profiles must be isolated, bob has %d rows", len(other))
	}

	none, err := s.Load(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty ledger, got %v, %v", none, err)
	}
}

func TestMappings(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	m := models.NewMappings()
	m.Set("Zeta", "Shopping")
	m.Set("Alpha", "Groceries")
	if err := s.SaveMappings(ctx, m); err != nil {
		t.Fatalf("SaveMappings: %v", err)
	}

	got, err := s.LoadMappings(ctx)
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}
	if keys := got.Keys(); len(keys) != 2 || keys[0] != "Zeta" {
		t.Errorf("keys = %v", keys)
	}
}

func TestRebind(t *testing.T) {
	s := &Store{driver: Postgres}
	if got := s.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	s.driver = SQLite
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Errorf("rebind = %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error")
	}
}
