package variation

import (
	"fmt"
	"strings"
)

const (
	MsgNameRequired   = "name required"
	MsgDuplicateName  = "duplicate name"
	MsgValuesRequired = "values required"
)

// AttributeDraft is the editable text of one attribute row.
type AttributeDraft struct {
	Name      string `json:"name"`
	RawValues string `json:"values"`
}

// AttributeDefinition is a validated attribute: trimmed name and the non-empty comma-split values.
type AttributeDefinition struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// AttributeError holds at most one name error and one values error for a draft.
type AttributeError struct {
	NameError   string `json:"nameError,omitempty"`
	ValuesError string `json:"valuesError,omitempty"`
}

func (e AttributeError) Empty() bool {
	return e.NameError == "" && e.ValuesError == ""
}

// ValidationResult is indexed like the drafts it was computed from.
type ValidationResult struct {
	Valid  bool             `json:"valid"`
	Errors []AttributeError `json:"errors"`
}

// AttributeField names an editable column of an attribute draft.
type AttributeField string

const (
	AttributeName   AttributeField = "name"
	AttributeValues AttributeField = "values"
)

// AttributeSet is the ordered list of attribute drafts of one form.
// Every mutation re-runs validation over the whole set.
type AttributeSet struct {
	drafts []AttributeDraft
	result ValidationResult
}

// NewAttributeSet returns a set holding the given drafts, already validated.
func NewAttributeSet(drafts ...AttributeDraft) *AttributeSet {
	s := &AttributeSet{drafts: append([]AttributeDraft(nil), drafts...)}
	s.revalidate()
	return s
}

// Add appends an empty draft.
func (s *AttributeSet) Add() {
	s.drafts = append(s.drafts, AttributeDraft{})
	s.revalidate()
}

// Append adds a pre-filled draft, e.g. from a suggestion.
func (s *AttributeSet) Append(d AttributeDraft) {
	s.drafts = append(s.drafts, d)
	s.revalidate()
}

// Update sets one field of the draft at index.
func (s *AttributeSet) Update(index int, field AttributeField, value string) error {
	if index < 0 || index >= len(s.drafts) {
		return fmt.Errorf("attribute %d: %w", index, ErrIndexOutOfRange)
	}
	switch field {
	case AttributeName:
		s.drafts[index].Name = value
	case AttributeValues:
		s.drafts[index].RawValues = value
	default:
		return fmt.Errorf("attribute field %q: %w", field, ErrUnknownField)
	}
	s.revalidate()
	return nil
}

// Remove deletes the draft at index.
func (s *AttributeSet) Remove(index int) error {
	if index < 0 || index >= len(s.drafts) {
		return fmt.Errorf("attribute %d: %w", index, ErrIndexOutOfRange)
	}
	s.drafts = append(s.drafts[:index], s.drafts[index+1:]...)
	s.revalidate()
	return nil
}

// Reset replaces every draft with a single empty placeholder.
func (s *AttributeSet) Reset() {
	s.drafts = []AttributeDraft{{}}
	s.revalidate()
}

func (s *AttributeSet) Drafts() []AttributeDraft {
	return append([]AttributeDraft(nil), s.drafts...)
}

func (s *AttributeSet) Len() int { return len(s.drafts) }

// Result returns the validation computed after the last mutation.
func (s *AttributeSet) Result() ValidationResult {
	return ValidationResult{
		Valid:  s.result.Valid,
		Errors: append([]AttributeError(nil), s.result.Errors...),
	}
}

// Validate recomputes and returns the validation result.
func (s *AttributeSet) Validate() ValidationResult {
	s.revalidate()
	return s.Result()
}

// Definitions returns the drafts that passed validation, in order.
func (s *AttributeSet) Definitions() []AttributeDefinition {
	defs := make([]AttributeDefinition, 0, len(s.drafts))
	for i, d := range s.drafts {
		if i < len(s.result.Errors) && !s.result.Errors[i].Empty() {
			continue
		}
		defs = append(defs, AttributeDefinition{
			Name:   strings.TrimSpace(d.Name),
			Values: SplitValues(d.RawValues),
		})
	}
	return defs
}

func (s *AttributeSet) revalidate() {
	s.result = ValidateDrafts(s.drafts)
}

// ValidateDrafts applies the attribute rules to every draft.
// Duplicate names are detected case-insensitively after trimming and only
// occurrences after the first are flagged.
func ValidateDrafts(drafts []AttributeDraft) ValidationResult {
	errs := make([]AttributeError, len(drafts))
	seen := make(map[string]bool, len(drafts))
	complete := 0

	for i, d := range drafts {
		name := strings.TrimSpace(d.Name)
		key := strings.ToLower(name)
		switch {
		case name == "":
			errs[i].NameError = MsgNameRequired
		case seen[key]:
			errs[i].NameError = MsgDuplicateName
		default:
			seen[key] = true
		}

		values := SplitValues(d.RawValues)
		if len(values) == 0 {
			errs[i].ValuesError = MsgValuesRequired
		}

		if name != "" && len(values) > 0 {
			complete++
		}
	}

	valid := complete > 0
	for _, e := range errs {
		if !e.Empty() {
			valid = false
			break
		}
	}
	return ValidationResult{Valid: valid, Errors: errs}
}

// SplitValues splits a comma separated list, trimming entries and dropping empty ones.
func SplitValues(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
