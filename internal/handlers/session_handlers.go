package handlers

import (
	"fmt"
	"net/http"

	"github.com/01moynul/bookshelf-admin/internal/codegen"
	"github.com/01moynul/bookshelf-admin/internal/middleware"
	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateSessionInput opens a form for a new book, or for an existing one when BookID is set.
type CreateSessionInput struct {
	ParentSKU string `json:"parentSku" binding:"max=64"`
	BookID    *int64 `json:"bookId" binding:"omitempty,gt=0"`
	Title     string `json:"title"`
}

// CreateSession is the handler for POST /v1/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	var input CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Edit flow: load the persisted book first so a backend failure opens nothing.
	var book *models.Book
	if input.BookID != nil {
		var err error
		book, err = h.Backend.FetchBook(c.Request.Context(), middleware.Bearer(c), *input.BookID)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	s := h.Sessions.Create(userID, input.ParentSKU)
	err := s.Do(func(f *variation.ProductForm) error {
		f.Title = input.Title
		if book != nil {
			return loadBook(f, book)
		}
		return nil
	})
	if err != nil {
		_ = h.Sessions.Close(s.ID, userID)
		respondError(c, err)
		return
	}

	zap.S().Infow("form session created", "session", s.ID, "user", userID, "book", input.BookID)
	respondView(c, http.StatusCreated, s)
}

func loadBook(f *variation.ProductForm, b *models.Book) error {
	id := b.ID
	f.BookID = &id
	f.Title = b.Title
	if b.SKU != nil {
		f.SetParentSKU(*b.SKU)
	}
	price := b.Price
	f.Price = &price

	pt := variation.Simple
	if len(b.Variations) > 0 {
		pt = variation.Variable
	}
	if b.ProductType != "" {
		var err error
		if pt, err = variation.ParseProductType(b.ProductType); err != nil {
			return err
		}
	}
	if pt == variation.Simple {
		f.StockQuantity = b.StockQuantity
	}
	return f.Restore(pt, nil, b.ToVariations())
}

// GetSession is the handler for GET /v1/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respondView(c, http.StatusOK, s)
}

// DeleteSession is the handler for DELETE /v1/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if err := h.Sessions.Close(c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

// UpdateProductInput carries the product-level fields; absent fields are left alone.
type UpdateProductInput struct {
	Title         *string          `json:"title"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity" binding:"omitempty,gte=0"`
}

// UpdateProduct is the handler for PATCH /v1/sessions/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Price != nil && input.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price cannot be negative"})
		return
	}

	err := s.Do(func(f *variation.ProductForm) error {
		if input.StockQuantity != nil && f.Type() == variation.Variable {
			return fmt.Errorf("stock is tracked per variation: %w", variation.ErrInvalidValue)
		}
		if input.Title != nil {
			f.Title = *input.Title
		}
		if input.Price != nil {
			f.Price = input.Price
		}
		if input.StockQuantity != nil {
			f.StockQuantity = input.StockQuantity
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// SetParentSKUInput replaces the parent SKU.
type SetParentSKUInput struct {
	SKU string `json:"sku" binding:"max=64"`
}

// SetParentSKU is the handler for PUT /v1/sessions/:id/sku
// Existing variation SKUs keep their value.
func (h *Handlers) SetParentSKU(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var input SetParentSKUInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.Do(func(f *variation.ProductForm) error {
		f.SetParentSKU(input.SKU)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// GenerateSKU is the handler for POST /v1/sessions/:id/sku/generate
// It derives a parent SKU from the book title.
func (h *Handlers) GenerateSKU(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.Do(func(f *variation.ProductForm) error {
		f.SetParentSKU(codegen.BaseSKU(f.Title))
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// SetProductTypeInput switches between simple and variable.
type SetProductTypeInput struct {
	ProductType string `json:"productType" binding:"required"`
}

// SetProductType is the handler for PUT /v1/sessions/:id/type
func (h *Handlers) SetProductType(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var input SetProductTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pt, err := variation.ParseProductType(input.ProductType)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.SetType(pt); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}

// SaveDraft is the handler for POST /v1/sessions/:id/draft
func (h *Handlers) SaveDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	d, err := h.Sessions.SaveDraft(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Draft saved",
		"id":        d.ID,
		"updatedAt": d.UpdatedAt,
	})
}

// RestoreDraft is the handler for POST /v1/drafts/:id/restore
func (h *Handlers) RestoreDraft(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}
	s, err := h.Sessions.RestoreDraft(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondView(c, http.StatusOK, s)
}
