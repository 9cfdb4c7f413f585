package variation

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidValue    = errors.New("invalid value")
	ErrUnknownType     = errors.New("unknown product type")
)

// AttributeValidationError blocks expansion while any attribute draft is invalid.
// Manual variation entry is never blocked by it.
type AttributeValidationError struct {
	Result ValidationResult
}

func (e *AttributeValidationError) Error() string {
	n := 0
	for _, ie := range e.Result.Errors {
		if !ie.Empty() {
			n++
		}
	}
	if n == 0 {
		return "attributes: at least one named attribute with values is required"
	}
	return fmt.Sprintf("attributes: %d invalid attribute(s)", n)
}

// ExpansionRefusedError is returned when expansion cannot produce a variation matrix.
type ExpansionRefusedError struct {
	Reason       string
	Combinations int
}

func (e *ExpansionRefusedError) Error() string {
	if e.Combinations > 0 {
		return fmt.Sprintf("expansion refused: %s (%d combinations)", e.Reason, e.Combinations)
	}
	return "expansion refused: " + e.Reason
}

// FieldValidationError carries field-level errors, either from the submission
// service or from local pre-submit checks, already mapped to form positions.
type FieldValidationError struct {
	Message string
	Errors  MappedErrors
}

func (e *FieldValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed: %d field error(s)", e.Errors.Count())
}
