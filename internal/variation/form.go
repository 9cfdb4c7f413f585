package variation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductType selects between a single stocked product and a variation matrix.
type ProductType string

const (
	Simple   ProductType = "simple"
	Variable ProductType = "variable"
)

func ParseProductType(s string) (ProductType, error) {
	switch ProductType(s) {
	case Simple, Variable:
		return ProductType(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownType)
}

// ProductForm is the state of one book being created or edited.
type ProductForm struct {
	BookID        *int64
	Title         string
	Price         *decimal.Decimal
	StockQuantity *int

	productType ProductType
	attributes  *AttributeSet
	variations  *Collection
	expander    *Expander
}

// NewProductForm starts a simple product with one empty attribute draft.
func NewProductForm(parentSKU string, maxCombinations int) *ProductForm {
	f := &ProductForm{
		productType: Simple,
		attributes:  NewAttributeSet(),
		variations:  NewCollection(parentSKU),
		expander:    NewExpander(maxCombinations),
	}
	f.attributes.Reset()
	return f
}

func (f *ProductForm) Type() ProductType         { return f.productType }
func (f *ProductForm) Attributes() *AttributeSet { return f.attributes }
func (f *ProductForm) Variations() *Collection   { return f.variations }
func (f *ProductForm) ParentSKU() string         { return f.variations.ParentSKU() }

func (f *ProductForm) SetParentSKU(sku string) { f.variations.SetParentSKU(sku) }

// SetType switches the product type. Re-entering the current type does nothing.
//
// Simple -> Variable clears the product-level stock; attributes and variations from an
// earlier switch are kept. Variable -> Simple discards the variation matrix and leaves a
// single empty attribute draft.
func (f *ProductForm) SetType(t ProductType) error {
	if t != Simple && t != Variable {
		return fmt.Errorf("%q: %w", t, ErrUnknownType)
	}
	if t == f.productType {
		return nil
	}
	switch t {
	case Variable:
		f.StockQuantity = nil
	case Simple:
		f.variations.Clear()
		f.attributes.Reset()
	}
	f.productType = t
	return nil
}

// Expand validates the attribute drafts, expands them and merges the result into the
// collection. It returns how many variations were added.
func (f *ProductForm) Expand() (int, error) {
	result := f.attributes.Validate()
	if !result.Valid {
		return 0, &AttributeValidationError{Result: result}
	}
	vs, err := f.expander.Expand(f.attributes.Definitions(), f.ParentSKU())
	if err != nil {
		return 0, err
	}
	return f.variations.AppendFromExpansion(vs), nil
}

// Restore loads a previously saved state without running the type transition rules.
func (f *ProductForm) Restore(t ProductType, drafts []AttributeDraft, vs []Variation) error {
	if t != Simple && t != Variable {
		return fmt.Errorf("%q: %w", t, ErrUnknownType)
	}
	f.productType = t
	f.attributes = NewAttributeSet(drafts...)
	if f.attributes.Len() == 0 {
		f.attributes.Reset()
	}
	f.variations.Load(vs)
	return nil
}
