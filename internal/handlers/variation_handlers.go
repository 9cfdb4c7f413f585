package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AddVariation is the handler for POST /v1/sessions/:id/variations
// It appends a blank, manually filled variation.
func (h *Handlers) AddVariation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.Do(func(f *variation.ProductForm) error {
		if f.Type() != variation.Variable {
			return errNotVariable
		}
		f.Variations().AddManual()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusCreated, s)
}

// UpdateVariationInput sets one scalar field. A null value clears it.
type UpdateVariationInput struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
}

// UpdateVariation is the handler for PATCH /v1/sessions/:id/variations/:index
func (h *Handlers) UpdateVariation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var input UpdateVariationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, err := variation.ParseField(input.Field)
	if err != nil {
		respondError(c, err)
		return
	}

	var value any
	if len(input.Value) > 0 {
		if err := json.Unmarshal(input.Value, &value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid value"})
			return
		}
	}
	if field == variation.FieldImage {
		if value != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Upload images through the image endpoint"})
			return
		}
		if err := s.ClearImage(index); err != nil {
			respondError(c, err)
			return
		}
		respondView(c, http.StatusOK, s)
		return
	}

	if err := s.Do(func(f *variation.ProductForm) error {
		return f.Variations().UpdateField(index, field, value)
	}); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// RemoveVariation is the handler for DELETE /v1/sessions/:id/variations/:index
func (h *Handlers) RemoveVariation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := s.RemoveVariation(index); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// AddVariationAttribute is the handler for POST /v1/sessions/:id/variations/:index/attributes
func (h *Handlers) AddVariationAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := s.Do(func(f *variation.ProductForm) error {
		return f.Variations().AddAttributeKey(index)
	}); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusCreated, s)
}

// UpdateVariationAttributeInput renames and/or re-values one attribute of a variation.
type UpdateVariationAttributeInput struct {
	OldKey string `json:"oldKey"`
	NewKey string `json:"newKey"`
	Value  string `json:"value"`
}

// UpdateVariationAttribute is the handler for PATCH /v1/sessions/:id/variations/:index/attributes
// The variation SKU is re-derived afterwards.
func (h *Handlers) UpdateVariationAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var input UpdateVariationAttributeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Do(func(f *variation.ProductForm) error {
		return f.Variations().UpdateAttributeKey(index, input.OldKey, input.NewKey, input.Value)
	}); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// RemoveVariationAttribute is the handler for DELETE /v1/sessions/:id/variations/:index/attributes/:key
func (h *Handlers) RemoveVariationAttribute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	key := c.Param("key")
	if err := s.Do(func(f *variation.ProductForm) error {
		return f.Variations().RemoveAttributeKey(index, key)
	}); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// UploadVariationImage is the handler for POST /v1/sessions/:id/variations/:index/image
// The file is kept in memory until submit; the preview is built in the background.
func (h *Handlers) UploadVariationImage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}

	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if h.MaxImageBytes > 0 && file.Size > h.MaxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Image exceeds %d bytes", h.MaxImageBytes),
		})
		return
	}

	// 2. Read it
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	// 3. Generate a safe unique filename (uuid + extension)
	ext := strings.ToLower(filepath.Ext(file.Filename))
	asset := &variation.ImageAsset{
		Filename:    uuid.New().String() + ext,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}

	// 4. Attach it and start the preview
	if err := s.AttachImage(index, asset); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusAccepted, s)
}
