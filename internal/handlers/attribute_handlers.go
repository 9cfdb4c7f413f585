package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bookshelf-admin/internal/metrics"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddAttribute is the handler for POST /v1/sessions/:id/attributes
// It appends an empty attribute draft.
func (h *Handlers) AddAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.Do(func(f *variation.ProductForm) error {
		f.Attributes().Add()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusCreated, s)
}

// UpdateAttributeInput edits one attribute draft field.
type UpdateAttributeInput struct {
	Field string `json:"field" binding:"required,oneof=name values"`
	Value string `json:"value"`
}

// UpdateAttribute is the handler for PATCH /v1/sessions/:id/attributes/:index
func (h *Handlers) UpdateAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var input UpdateAttributeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.Do(func(f *variation.ProductForm) error {
		return f.Attributes().Update(index, variation.AttributeField(input.Field), input.Value)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// RemoveAttribute is the handler for DELETE /v1/sessions/:id/attributes/:index
func (h *Handlers) RemoveAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := s.Do(func(f *variation.ProductForm) error { return f.Attributes().Remove(index) }); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// SuggestAttributesInput gives the model more context than the title alone.
type SuggestAttributesInput struct {
	Description string `json:"description"`
}

// SuggestAttributes is the handler for POST /v1/sessions/:id/attributes/suggest
// Suggested drafts are appended to the attribute set and validated like manual edits.
func (h *Handlers) SuggestAttributes(c *gin.Context) {
	if h.Suggester == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Attribute suggestions are not configured"})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	var input SuggestAttributesInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var title string
	if err := s.Do(func(f *variation.ProductForm) error { title = f.Title; return nil }); err != nil {
		respondError(c, err)
		return
	}
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Set a title before asking for suggestions"})
		return
	}

	// The model call runs outside the session lock.
	suggested, err := h.Suggester.SuggestAttributes(c.Request.Context(), title, input.Description)
	if err != nil {
		zap.S().Warnw("attribute suggestion failed", "session", s.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get attribute suggestions"})
		return
	}

	err = s.Do(func(f *variation.ProductForm) error {
		attrs := f.Attributes()
		// Replace the untouched starter draft instead of leaving an empty row above the suggestions.
		if attrs.Len() == 1 {
			if d := attrs.Drafts()[0]; d.Name == "" && d.RawValues == "" && len(suggested) > 0 {
				if err := attrs.Remove(0); err != nil {
					return err
				}
			}
		}
		for _, d := range suggested {
			attrs.Append(d)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// ExpandAttributes is the handler for POST /v1/sessions/:id/expand
// It merges the cartesian product of the attribute drafts into the variation list.
func (h *Handlers) ExpandAttributes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var added int
	err := s.Do(func(f *variation.ProductForm) error {
		if f.Type() != variation.Variable {
			return errNotVariable
		}
		var err error
		added, err = f.Expand()
		return err
	})

	var (
		attrErr *variation.AttributeValidationError
		refused *variation.ExpansionRefusedError
	)
	switch {
	case err == nil:
		h.Metrics.ObserveExpansion(metrics.ExpansionOK, added)
	case errors.As(err, &attrErr):
		h.Metrics.ObserveExpansion(metrics.ExpansionInvalid, 0)
	case errors.As(err, &refused):
		h.Metrics.ObserveExpansion(metrics.ExpansionRefused, 0)
		zap.S().Infow("expansion refused", "session", s.ID, "reason", refused.Reason, "combinations", refused.Combinations)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := s.View()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "session": view})
}
