package variation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field names a scalar column of a variation.
type Field string

const (
	FieldPrice         Field = "price"
	FieldStockQuantity Field = "stock_quantity"
	FieldSKU           Field = "sku"
	FieldImage         Field = "image"
)

// ParseField accepts the wire names and their camelCase spellings.
func ParseField(s string) (Field, error) {
	switch strings.TrimSpace(s) {
	case "price":
		return FieldPrice, nil
	case "stock_quantity", "stockQuantity", "stock":
		return FieldStockQuantity, nil
	case "sku":
		return FieldSKU, nil
	case "image":
		return FieldImage, nil
	}
	return "", fmt.Errorf("variation field %q: %w", s, ErrUnknownField)
}

// Collection is the ordered list of variations backing a form.
// Positions are display order only; previews are keyed by variation token
// so that removing an entry never leaves a preview attached to the wrong row.
type Collection struct {
	parentSKU  string
	variations []Variation
	previews   map[string]Preview
}

func NewCollection(parentSKU string) *Collection {
	return &Collection{parentSKU: parentSKU, previews: make(map[string]Preview)}
}

// SetParentSKU changes the SKU used for future derivations. Existing SKUs are left alone.
func (c *Collection) SetParentSKU(sku string) { c.parentSKU = sku }

func (c *Collection) ParentSKU() string { return c.parentSKU }

func (c *Collection) Len() int { return len(c.variations) }

// Variations returns a copy of the current entries.
func (c *Collection) Variations() []Variation {
	out := make([]Variation, len(c.variations))
	for i, v := range c.variations {
		out[i] = v.clone()
	}
	return out
}

// At returns a copy of the entry at index.
func (c *Collection) At(index int) (Variation, error) {
	if err := c.check(index); err != nil {
		return Variation{}, err
	}
	return c.variations[index].clone(), nil
}

// IndexOf translates a token to its current position, or -1.
func (c *Collection) IndexOf(token string) int {
	for i, v := range c.variations {
		if v.Token == token {
			return i
		}
	}
	return -1
}

// AddManual appends a variation with no attributes.
func (c *Collection) AddManual() Variation {
	v := newVariation(c.parentSKU, Attributes{})
	c.variations = append(c.variations, v)
	return v.clone()
}

// Load replaces the collection with existing variations, e.g. those of a book being edited
// or a restored draft. Missing tokens are generated.
func (c *Collection) Load(vs []Variation) {
	c.variations = make([]Variation, 0, len(vs))
	c.previews = make(map[string]Preview)
	for _, v := range vs {
		v = v.clone()
		if v.Token == "" {
			v.Token = newToken()
		}
		c.variations = append(c.variations, v)
	}
}

// Remove deletes the entry at index. Later entries shift down by one and keep their previews.
func (c *Collection) Remove(index int) (Variation, error) {
	if err := c.check(index); err != nil {
		return Variation{}, err
	}
	removed := c.variations[index]
	c.variations = append(c.variations[:index], c.variations[index+1:]...)
	delete(c.previews, removed.Token)
	return removed, nil
}

// Clear removes every entry and preview.
func (c *Collection) Clear() {
	c.variations = nil
	c.previews = make(map[string]Preview)
}

// UpdateField sets a scalar field. It never re-derives the SKU, so a hand-typed SKU sticks.
//
// Accepted values: price takes a decimal.Decimal, a number or a numeric string ("" or nil
// clears it); stock_quantity takes an int or a numeric string ("" or nil clears it); sku
// takes a string; image takes an *ImageAsset or nil.
func (c *Collection) UpdateField(index int, field Field, value any) error {
	if err := c.check(index); err != nil {
		return err
	}
	v := &c.variations[index]

	switch field {
	case FieldPrice:
		p, err := parsePrice(value)
		if err != nil {
			return err
		}
		v.Price = p
	case FieldStockQuantity:
		q, err := parseStock(value)
		if err != nil {
			return err
		}
		v.StockQuantity = q
	case FieldSKU:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("sku %v: %w", value, ErrInvalidValue)
		}
		v.SKU = s
	case FieldImage:
		switch img := value.(type) {
		case nil:
			v.Image = nil
			delete(c.previews, v.Token)
		case *ImageAsset:
			v.Image = img
		default:
			return fmt.Errorf("image %T: %w", value, ErrInvalidValue)
		}
	default:
		return fmt.Errorf("variation field %q: %w", field, ErrUnknownField)
	}
	return nil
}

// AddAttributeKey adds an empty attribute row to the entry at index.
// The SKU is not re-derived until the row gets a name or value.
func (c *Collection) AddAttributeKey(index int) error {
	if err := c.check(index); err != nil {
		return err
	}
	c.variations[index].Attributes.Set("", "")
	return nil
}

// UpdateAttributeKey renames and/or re-values one attribute of the entry at index, then
// re-derives its SKU, replacing any hand-typed SKU.
func (c *Collection) UpdateAttributeKey(index int, oldKey, newKey, newValue string) error {
	if err := c.check(index); err != nil {
		return err
	}
	v := &c.variations[index]
	if oldKey != newKey {
		v.Attributes.Delete(oldKey)
	}
	v.Attributes.Set(newKey, newValue)
	v.SKU = DeriveSKU(c.parentSKU, v.Attributes)
	return nil
}

// RemoveAttributeKey deletes one attribute of the entry at index and re-derives its SKU.
func (c *Collection) RemoveAttributeKey(index int, key string) error {
	if err := c.check(index); err != nil {
		return err
	}
	v := &c.variations[index]
	v.Attributes.Delete(key)
	v.SKU = DeriveSKU(c.parentSKU, v.Attributes)
	return nil
}

// AppendFromExpansion appends the variations whose attribute combination is not already
// present, compared as unordered key/value sets. It returns how many were added.
func (c *Collection) AppendFromExpansion(vs []Variation) int {
	added := 0
	for _, nv := range vs {
		if c.hasCombination(nv.Attributes) {
			continue
		}
		nv = nv.clone()
		if nv.Token == "" {
			nv.Token = newToken()
		}
		c.variations = append(c.variations, nv)
		added++
	}
	return added
}

func (c *Collection) hasCombination(attrs Attributes) bool {
	for _, v := range c.variations {
		if v.Attributes.Equal(attrs) {
			return true
		}
	}
	return false
}

// SetPreview stores a preview for the variation identified by token.
// It reports false, storing nothing, when that variation no longer exists.
func (c *Collection) SetPreview(token string, p Preview) bool {
	if c.IndexOf(token) < 0 {
		return false
	}
	c.previews[token] = p
	return true
}

// PreviewAt returns the preview of the entry currently at index.
func (c *Collection) PreviewAt(index int) (Preview, bool) {
	if index < 0 || index >= len(c.variations) {
		return Preview{}, false
	}
	p, ok := c.previews[c.variations[index].Token]
	return p, ok
}

// Previews returns the previews indexed by current position.
func (c *Collection) Previews() map[int]Preview {
	out := make(map[int]Preview, len(c.previews))
	for i, v := range c.variations {
		if p, ok := c.previews[v.Token]; ok {
			out[i] = p
		}
	}
	return out
}

func (c *Collection) check(index int) error {
	if index < 0 || index >= len(c.variations) {
		return fmt.Errorf("variation %d: %w", index, ErrIndexOutOfRange)
	}
	return nil
}

func parsePrice(value any) (*decimal.Decimal, error) {
	var d decimal.Decimal
	switch p := value.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		d = p
	case *decimal.Decimal:
		if p == nil {
			return nil, nil
		}
		d = *p
	case float64:
		d = decimal.NewFromFloat(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int64:
		d = decimal.NewFromInt(p)
	case string:
		s := strings.TrimSpace(p)
		if s == "" {
			return nil, nil
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", p, ErrInvalidValue)
		}
		d = parsed
	default:
		return nil, fmt.Errorf("price %T: %w", value, ErrInvalidValue)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("price %s: %w", d, ErrInvalidValue)
	}
	return &d, nil
}

func parseStock(value any) (*int, error) {
	var n int
	switch q := value.(type) {
	case nil:
		return nil, nil
	case int:
		n = q
	case int64:
		n = int(q)
	case float64:
		if q != float64(int(q)) {
			return nil, fmt.Errorf("stock quantity %v: %w", q, ErrInvalidValue)
		}
		n = int(q)
	case string:
		s := strings.TrimSpace(q)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("stock quantity %q: %w", q, ErrInvalidValue)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("stock quantity %T: %w", value, ErrInvalidValue)
	}
	if n < 0 {
		return nil, fmt.Errorf("stock quantity %d: %w", n, ErrInvalidValue)
	}
	return &n, nil
}
