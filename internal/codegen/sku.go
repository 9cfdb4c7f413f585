package codegen

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	maxStemLen = 12
	suffixLen  = 6
)

// BaseSKU builds a parent SKU from a book title, e.g. "The Go Way" -> "THE-GO-WAY-1A2B3C".
func BaseSKU(title string) string {
	stem := strings.ToUpper(slug.Make(title))
	if stem == "" {
		return RandomSKU()
	}
	if len(stem) > maxStemLen {
		stem = strings.TrimRight(stem[:maxStemLen], "-")
	}
	return stem + "-" + suffix()
}

// RandomSKU returns a SKU with no title stem.
func RandomSKU() string {
	return "SKU-" + suffix()
}

func suffix() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:suffixLen])
}
