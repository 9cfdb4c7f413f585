package variation

import (
	"strings"
	"unicode"
)

// newSuffix is appended to the parent SKU while a variation has no attribute values yet.
const newSuffix = "NEW"

// DeriveSKU maps a parent SKU and a variation's attributes to the variation SKU.
//
//	DeriveSKU("BOOK001", {Format: "Hard Cover", Language: "English"}) == "BOOK001-HardCover-English"
//	DeriveSKU("BOOK001", {}) == "BOOK001-NEW"
//	DeriveSKU("", anything) == ""
func DeriveSKU(parentSKU string, attrs Attributes) string {
	if parentSKU == "" {
		return ""
	}

	parts := make([]string, 0, attrs.Len())
	for _, v := range attrs.Values() {
		parts = append(parts, stripSpaces(v))
	}
	joined := strings.Join(parts, "-")
	if joined == "" {
		return parentSKU + "-" + newSuffix
	}
	return parentSKU + "-" + joined
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
