package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Modifier is one context adjustment that fired while scoring a finding.
type Modifier struct {
	Name  string
	Delta float64
}

// Signed renders the delta the way the audit trail shows it, e.g. "+1.0" or "-0.5".
func (m Modifier) Signed() string {
	s := strconv.FormatFloat(m.Delta, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if m.Delta >= 0 {
		s = "+" + s
	}
	return s
}

// Ledger is the ordered list of modifiers applied to a finding. It serializes
// as a JSON object whose keys keep application order.
type Ledger []Modifier

// Get returns the signed delta recorded for name.
func (l Ledger) Get(name string) (string, bool) {
	for _, m := range l {
		if m.Name == name {
			return m.Signed(), true
		}
	}
	return "", false
}

// Names returns modifier names in application order.
func (l Ledger) Names() []string {
	names := make([]string, len(l))
	for i, m := range l {
		names[i] = m.Name
	}
	return names
}

// Map returns the ledger as name → signed delta.
func (l Ledger) Map() map[string]string {
	out := make(map[string]string, len(l))
	for _, m := range l {
		out[m.Name] = m.Signed()
	}
	return out
}

// Total is the sum of all deltas.
func (l Ledger) Total() float64 {
	var sum float64
	for _, m := range l {
		sum += m.Delta
	}
	return sum
}

func (l Ledger) clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// MarshalJSON writes {"org_type":"+1.0",...} in application order.
func (l Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Signed())
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

// UnmarshalJSON reads the object form back, keeping key order.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ledger: expected object, got %v", tok)
	}

	var out Ledger
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var raw string
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ledger: modifier %q: %w", name, err)
		}
		delta, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("ledger: modifier %q: %w", name, err)
		}
		out = append(out, Modifier{Name: name, Delta: delta})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}
