package variation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrors(t *testing.T) {
	mapped := MapErrors(map[string][]string{
		"title":                          {"The title field is required."},
		"variations.2.stock_quantity":    {"must be at least 0"},
		"variations[0][sku]":             {"has already been taken"},
		"variations.1.attributes.Format": {"unknown value"},
		"attributes.0.name":              {"duplicate"},
		"variations.x.price":             {"bad index"},
		"variations.3":                   {"no field"},
		"meta.source":                    {"unexpected"},
		"variations.4.price":             {},
	})

	assert.Equal(t, []string{"The title field is required."}, mapped.TopLevel["title"])
	assert.Equal(t, []string{"must be at least 0"}, mapped.VariationField(2, "stock_quantity"))
	assert.Equal(t, []string{"has already been taken"}, mapped.VariationField(0, "sku"))
	assert.Equal(t, []string{"unknown value"}, mapped.VariationField(1, "attributes.Format"))
	assert.Equal(t, []string{"duplicate"}, mapped.Attributes[0]["name"])

	assert.Equal(t, []string{"bad index"}, mapped.General["variations.x.price"])
	assert.Equal(t, []string{"no field"}, mapped.General["variations.3"])
	assert.Equal(t, []string{"unexpected"}, mapped.General["meta.source"])
	_, ok := mapped.Variations[4]
	assert.False(t, ok)

	assert.Equal(t, 8, mapped.Count())
}

func TestMapErrorsKeepsEveryMessage(t *testing.T) {
	flat := map[string][]string{
		"":       {"empty path"},
		"[]":     {"only delimiters"},
		"a.b.c":  {"one", "two"},
		"amount": {"three"},
	}
	mapped := MapErrors(flat)

	total := 0
	for _, msgs := range flat {
		total += len(msgs)
	}
	assert.Equal(t, total, mapped.Count())
}

func TestDecodeErrorMap(t *testing.T) {
	flat, err := DecodeErrorMap([]byte(`{
		"variations.0.sku": ["taken", "too long"],
		"title": "required",
		"weird": 12
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"taken", "too long"}, flat["variations.0.sku"])
	assert.Equal(t, []string{"required"}, flat["title"])
	assert.Equal(t, []string{"12"}, flat["weird"])

	_, err = DecodeErrorMap([]byte(`[]`))
	assert.Error(t, err)
}
