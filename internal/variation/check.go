package variation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// variationCheck mirrors the submission service's rules for one variation.
type variationCheck struct {
	Attributes    int     `json:"attributes" validate:"gte=1"`
	Price         *string `json:"price" validate:"omitempty,numeric"`
	StockQuantity *int    `json:"stock_quantity" validate:"required,gte=0"`
	SKU           string  `json:"sku" validate:"required_with=ParentSKU,max=64"`
	ParentSKU     string  `json:"-"`
}

var checker = newChecker()

func newChecker() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func checkMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return fe.Field() + " is required"
	case "gte":
		if fe.Field() == "attributes" {
			return "at least one attribute is required"
		}
		return fe.Field() + " must be at least " + fe.Param()
	case "numeric":
		return fe.Field() + " must be a number"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}

// CheckVariations runs the local pre-submit checks over a variable product and returns
// path-keyed messages in the same shape the submission service uses. An empty map means
// the form can be submitted.
func CheckVariations(f *ProductForm) map[string][]string {
	out := make(map[string][]string)
	if f.Type() != Variable {
		return out
	}

	vs := f.Variations().Variations()
	if len(vs) == 0 {
		out[segVariations] = []string{"at least one variation is required"}
		return out
	}

	skus := make(map[string]int, len(vs))
	for i, v := range vs {
		path := func(field string) string { return fmt.Sprintf("%s.%d.%s", segVariations, i, field) }

		vc := variationCheck{
			Attributes:    v.Attributes.Len(),
			StockQuantity: v.StockQuantity,
			SKU:           v.SKU,
			ParentSKU:     f.ParentSKU(),
		}
		if v.Price != nil {
			s := v.Price.String()
			vc.Price = &s
		}
		if err := checker.Struct(vc); err != nil {
			var ves validator.ValidationErrors
			if !errors.As(err, &ves) {
				out[path("_")] = append(out[path("_")], err.Error())
				continue
			}
			for _, fe := range ves {
				out[path(fe.Field())] = append(out[path(fe.Field())], checkMessage(fe))
			}
		}

		if v.Attributes.Has("") {
			out[path("attributes")] = append(out[path("attributes")], "attribute name is required")
		}
		for j := 0; j < i; j++ {
			if vs[j].Attributes.Len() > 0 && vs[j].Attributes.Equal(v.Attributes) {
				out[path("attributes")] = append(out[path("attributes")],
					fmt.Sprintf("same attributes as variation %d", j+1))
				break
			}
		}
		if v.SKU != "" {
			if first, dup := skus[v.SKU]; dup {
				out[path("sku")] = append(out[path("sku")],
					fmt.Sprintf("sku already used by variation %d", first+1))
			} else {
				skus[v.SKU] = i
			}
		}
	}
	return out
}

// Check runs CheckVariations and returns a *FieldValidationError when anything failed.
func Check(f *ProductForm) error {
	flat := CheckVariations(f)
	if len(flat) == 0 {
		return nil
	}
	return &FieldValidationError{Message: "variations are incomplete", Errors: MapErrors(flat)}
}
