package variation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	segVariations = "variations"
	segAttributes = "attributes"
)

// MappedErrors addresses validation messages by form position.
type MappedErrors struct {
	TopLevel   map[string][]string         `json:"topLevelErrors"`
	Variations map[int]map[string][]string `json:"variationErrors"`
	Attributes map[int]map[string][]string `json:"attributeErrors"`
	General    map[string][]string         `json:"general"`
}

func newMappedErrors() MappedErrors {
	return MappedErrors{
		TopLevel:   make(map[string][]string),
		Variations: make(map[int]map[string][]string),
		Attributes: make(map[int]map[string][]string),
		General:    make(map[string][]string),
	}
}

// Count returns the number of messages across every bucket.
func (m MappedErrors) Count() int {
	n := 0
	for _, msgs := range m.TopLevel {
		n += len(msgs)
	}
	for _, msgs := range m.General {
		n += len(msgs)
	}
	for _, fields := range m.Variations {
		for _, msgs := range fields {
			n += len(msgs)
		}
	}
	for _, fields := range m.Attributes {
		for _, msgs := range fields {
			n += len(msgs)
		}
	}
	return n
}

// VariationField returns the messages for one field of one variation.
func (m MappedErrors) VariationField(index int, field string) []string {
	return m.Variations[index][field]
}

// MapErrors turns a flat path-keyed error map, e.g. "variations.2.stock_quantity" or
// "variations[2][stock_quantity]", into MappedErrors. Paths that cannot be placed are
// kept verbatim under General.
func MapErrors(flat map[string][]string) MappedErrors {
	out := newMappedErrors()
	for path, msgs := range flat {
		if len(msgs) == 0 {
			continue
		}
		segs := splitPath(path)
		switch {
		case len(segs) == 1:
			out.TopLevel[segs[0]] = append(out.TopLevel[segs[0]], msgs...)
		case len(segs) >= 3 && (segs[0] == segVariations || segs[0] == segAttributes):
			idx, err := strconv.Atoi(segs[1])
			if err != nil || idx < 0 {
				out.General[path] = append(out.General[path], msgs...)
				continue
			}
			bucket := out.Variations
			if segs[0] == segAttributes {
				bucket = out.Attributes
			}
			field := strings.Join(segs[2:], ".")
			if bucket[idx] == nil {
				bucket[idx] = make(map[string][]string)
			}
			bucket[idx][field] = append(bucket[idx][field], msgs...)
		default:
			out.General[path] = append(out.General[path], msgs...)
		}
	}
	return out
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
}

// DecodeErrorMap reads a JSON object whose values are either a message or a list of
// messages.
func DecodeErrorMap(data []byte) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode error map: %w", err)
	}
	out := make(map[string][]string, len(raw))
	for path, v := range raw {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			out[path] = list
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			out[path] = []string{one}
			continue
		}
		out[path] = []string{string(v)}
	}
	return out, nil
}
