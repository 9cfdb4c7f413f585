package variation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variableForm(t *testing.T) *ProductForm {
	t.Helper()
	f := NewProductForm("BOOK001", DefaultMaxCombinations)
	require.NoError(t, f.SetType(Variable))
	return f
}

func TestNewProductFormStartsSimple(t *testing.T) {
	f := NewProductForm("BOOK001", DefaultMaxCombinations)

	assert.Equal(t, Simple, f.Type())
	assert.Equal(t, []AttributeDraft{{}}, f.Attributes().Drafts())
	assert.Equal(t, 0, f.Variations().Len())
}

func TestSetTypeTransitions(t *testing.T) {
	f := NewProductForm("BOOK001", DefaultMaxCombinations)
	stock := 12
	f.StockQuantity = &stock

	require.NoError(t, f.SetType(Variable))
	assert.Nil(t, f.StockQuantity, "product stock cleared when going variable")

	require.NoError(t, f.Attributes().Update(0, AttributeName, "Format"))
	require.NoError(t, f.Attributes().Update(0, AttributeValues, "Hardcover, Paperback"))
	added, err := f.Expand()
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	require.NoError(t, f.SetType(Variable))
	assert.Equal(t, 2, f.Variations().Len(), "re-entering the same type is a no-op")

	require.NoError(t, f.SetType(Simple))
	assert.Equal(t, 0, f.Variations().Len())
	assert.Equal(t, []AttributeDraft{{}}, f.Attributes().Drafts())

	assert.ErrorIs(t, f.SetType(ProductType("bundle")), ErrUnknownType)
}

func TestSimpleToVariableKeepsPriorMatrix(t *testing.T) {
	f := variableForm(t)
	f.Variations().AddManual()
	require.NoError(t, f.Attributes().Update(0, AttributeName, "Format"))

	f.productType = Simple
	require.NoError(t, f.SetType(Variable))

	assert.Equal(t, 1, f.Variations().Len())
	assert.Equal(t, "Format", f.Attributes().Drafts()[0].Name)
}

func TestExpandRequiresValidAttributes(t *testing.T) {
	f := variableForm(t)

	_, err := f.Expand()
	var invalid *AttributeValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, MsgNameRequired, invalid.Result.Errors[0].NameError)

	f.Variations().AddManual()
	assert.Equal(t, 1, f.Variations().Len(), "manual entry is never blocked")
}

func TestExpandGrowsIncrementally(t *testing.T) {
	f := variableForm(t)
	attrs := f.Attributes()
	require.NoError(t, attrs.Update(0, AttributeName, "Format"))
	require.NoError(t, attrs.Update(0, AttributeValues, "Hardcover"))

	added, err := f.Expand()
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.NoError(t, attrs.Update(0, AttributeValues, "Hardcover, Paperback"))
	added, err = f.Expand()
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"BOOK001-Hardcover", "BOOK001-Paperback"}, skus(f.Variations().Variations()))
}

func TestExpandRefusedPastCap(t *testing.T) {
	f := NewProductForm("B", 3)
	require.NoError(t, f.SetType(Variable))
	require.NoError(t, f.Attributes().Update(0, AttributeName, "Size"))
	require.NoError(t, f.Attributes().Update(0, AttributeValues, "S,M,L,XL"))

	_, err := f.Expand()
	var refused *ExpansionRefusedError
	assert.ErrorAs(t, err, &refused)
	assert.Equal(t, 0, f.Variations().Len())
}

func TestRestore(t *testing.T) {
	f := NewProductForm("B", DefaultMaxCombinations)
	err := f.Restore(Variable, nil, []Variation{{SKU: "B-X", Attributes: NewAttributes("F", "X")}})
	require.NoError(t, err)

	assert.Equal(t, Variable, f.Type())
	assert.Equal(t, 1, f.Attributes().Len())
	assert.Equal(t, 1, f.Variations().Len())

	assert.ErrorIs(t, f.Restore("", nil, nil), ErrUnknownType)
}

func TestParseProductType(t *testing.T) {
	pt, err := ParseProductType("variable")
	require.NoError(t, err)
	assert.Equal(t, Variable, pt)

	_, err = ParseProductType("Variable")
	assert.ErrorIs(t, err, ErrUnknownType)
}
