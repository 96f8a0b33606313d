package models

import (
	"encoding/json"
	"testing"
)

func TestMappingsLookup(t *testing.T) {
	m := NewMappings()
	m.Set("MERCADONA", "Groceries")
	m.Set("Spotify AB", "Subscriptions")

	if got, ok := m.Lookup("mercadona"); !ok || got != "Groceries" {
		t.Errorf("Lookup(mercadona) = %q, %v", got, ok)
	}
	if _, ok := m.Lookup("mercadona 123"); ok {
		t.Error("lookup must be an exact match")
	}

	m.Set("mercadona", "Shopping")
	if m.Len() != 2 {
		t.Fatalf("expected correction to overwrite in place, have %d keys", m.Len())
	}
	if got, _ := m.Lookup("Mercadona"); got != "Shopping" {
		t.Errorf("expected overwritten category, got %q", got)
	}
	if keys := m.Keys(); keys[0] != "MERCADONA" {
		t.Errorf("expected original key kept first, got %v", keys)
	}
}

func TestMappingsJSONKeepsOrder(t *testing.T) {
	in := `{"zeta":"Shopping","alpha":"Groceries","Mid":"Transport"}`

	m := NewMappings()
	if err := json.Unmarshal([]byte(in), m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"zeta", "alpha", "Mid"}
	keys := m.Keys()
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Errorf("got %s, want %s", out, in)
	}
}

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Pablo", "pablo", false},
		{"  ana-2 ", "ana-2", false},
		{"../etc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeProfile(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
