package variation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Attributes maps an attribute name to the single value selected for one variation.
// Keys keep their insertion order because derived SKUs are built from it.
//
// A copied Attributes shares its storage with the original, and mutating the copy leaves
// the original inconsistent. Call Clone before mutating a value that is not exclusively yours.
type Attributes struct {
	keys   []string
	values map[string]string
}

// NewAttributes builds an Attributes from name/value pairs, in the order given.
func NewAttributes(pairs ...string) Attributes {
	var a Attributes
	for i := 0; i+1 < len(pairs); i += 2 {
		a.Set(pairs[i], pairs[i+1])
	}
	return a
}

// Set inserts key at the end, or updates its value in place when it already exists.
// The receiver must not share storage with another Attributes; see Clone.
func (a *Attributes) Set(key, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Delete removes key. It reports whether the key was present.
// The receiver must not share storage with another Attributes; see Clone.
func (a *Attributes) Delete(key string) bool {
	if _, ok := a.values[key]; !ok {
		return false
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return true
}

func (a Attributes) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a Attributes) Len() int { return len(a.keys) }

// Keys returns the attribute names in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Values returns the selected values in key insertion order.
func (a Attributes) Values() []string {
	out := make([]string, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.values[k])
	}
	return out
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	var c Attributes
	for _, k := range a.keys {
		c.Set(k, a.values[k])
	}
	return c
}

// Equal compares two attribute maps as unordered key/value sets.
func (a Attributes) Equal(b Attributes) bool {
	if len(a.keys) != len(b.keys) {
		return false
	}
	for k, v := range a.values {
		if bv, ok := b.values[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Map returns a plain map copy, losing order.
func (a Attributes) Map() map[string]string {
	out := make(map[string]string, len(a.keys))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes a JSON object with keys in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string values, keeping document order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Attributes{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("attributes: expected JSON object")
	}

	var out Attributes
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("attributes: unexpected key %v", kt)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attributes: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}
