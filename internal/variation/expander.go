package variation

// DefaultMaxCombinations caps the size of a generated variation matrix.
const DefaultMaxCombinations = 500

const reasonNoAttributes = "at least one valid attribute required"

// Expander turns attribute definitions into the Cartesian product of variations.
type Expander struct {
	MaxCombinations int
}

// NewExpander returns an expander that refuses matrices larger than max.
// A max of zero or less disables the cap.
func NewExpander(max int) *Expander {
	return &Expander{MaxCombinations: max}
}

// Expand produces one variation per combination, in odometer order: the last
// attribute varies fastest and values keep their declared order.
func (e *Expander) Expand(defs []AttributeDefinition, parentSKU string) ([]Variation, error) {
	usable := make([]AttributeDefinition, 0, len(defs))
	for _, d := range defs {
		if d.Name != "" && len(d.Values) > 0 {
			usable = append(usable, d)
		}
	}
	if len(usable) == 0 {
		return nil, &ExpansionRefusedError{Reason: reasonNoAttributes}
	}

	total := Combinations(usable)
	if e.MaxCombinations > 0 && total > e.MaxCombinations {
		return nil, &ExpansionRefusedError{Reason: "too many combinations", Combinations: total}
	}

	out := make([]Variation, 0, total)
	var walk func(depth int, acc Attributes)
	walk = func(depth int, acc Attributes) {
		if depth == len(usable) {
			out = append(out, newVariation(parentSKU, acc))
			return
		}
		for _, value := range usable[depth].Values {
			next := acc.Clone()
			next.Set(usable[depth].Name, value)
			walk(depth+1, next)
		}
	}
	walk(0, Attributes{})
	return out, nil
}

// Combinations returns the product of the value counts, saturating instead of overflowing.
func Combinations(defs []AttributeDefinition) int {
	if len(defs) == 0 {
		return 0
	}
	const ceiling = int(^uint(0) >> 2)
	total := 1
	for _, d := range defs {
		n := len(d.Values)
		if n == 0 {
			return 0
		}
		if total > ceiling/n {
			return ceiling
		}
		total *= n
	}
	return total
}
