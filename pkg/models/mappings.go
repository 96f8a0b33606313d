package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Mappings is the learned concept -> category table. Lookups are
// case-insensitive and keys keep the order in which they were first learned.
type Mappings struct {
	keys   []string
	values map[string]string
}

func NewMappings() *Mappings {
	return &Mappings{values: map[string]string{}}
}

func (m *Mappings) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the concepts in insertion order.
func (m *Mappings) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *Mappings) Get(concept string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[concept]
	return v, ok
}

// Lookup returns the category of the first learned concept equal to concept
// ignoring case.
func (m *Mappings) Lookup(concept string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, k := range m.keys {
		if strings.EqualFold(k, concept) {
			return m.values[k], true
		}
	}
	return "", false
}

// Set records an explicit correction. A concept that matches an existing key
// ignoring case overwrites that entry in place.
func (m *Mappings) Set(concept, category string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	for _, k := range m.keys {
		if strings.EqualFold(k, concept) {
			m.values[k] = category
			return
		}
	}
	m.keys = append(m.keys, concept)
	m.values[concept] = category
}

// Merge applies every entry of other, in order.
func (m *Mappings) Merge(other *Mappings) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

func (m *Mappings) Clone() *Mappings {
	out := NewMappings()
	out.Merge(m)
	return out
}

func (m *Mappings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the order of its keys.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = *NewMappings()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("learned mappings: expected object, got %v", tok)
	}
	out := NewMappings()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("learned mappings: unexpected key %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("learned mappings: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = *out
	return nil
}
